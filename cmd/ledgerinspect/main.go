// Command ledgerinspect prints the ledger aggregates and the raw session state
// records of a data directory. Stop the server first: badger holds an
// exclusive lock while it runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/logger"
	"github.com/listenupapp/readup/internal/store/sqlite"
)

func main() {
	defaultPath := os.Getenv("DATA_PATH")
	if defaultPath == "" {
		defaultPath = os.ExpandEnv("$HOME/.readup")
	}
	dataPath := flag.String("data-path", defaultPath, "Data directory holding ledger.db and state/")
	flag.Parse()

	ctx := context.Background()

	fmt.Println("=== Ledger ===")
	if err := dumpLedger(ctx, filepath.Join(*dataPath, "ledger.db")); err != nil {
		log.Fatalf("Failed to inspect ledger: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Session state ===")
	if err := dumpState(filepath.Join(*dataPath, "state")); err != nil {
		log.Fatalf("Failed to inspect session state: %v", err)
	}
}

func dumpLedger(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	db, err := sqlite.Open(path, logger.Discard())
	if err != nil {
		return err
	}
	defer db.Close()

	completed, err := db.CountCompletedMain(ctx)
	if err != nil {
		return err
	}
	streak, err := db.GetStreakSummary(ctx)
	if err != nil {
		return err
	}
	sources, err := db.CountBySource(ctx)
	if err != nil {
		return err
	}
	books, err := db.CompletedBooks(ctx)
	if err != nil {
		return err
	}
	emoji, err := db.CountByEmoji(ctx)
	if err != nil {
		return err
	}
	readingMs, err := db.TotalReadingTime(ctx)
	if err != nil {
		return err
	}
	plans, err := db.CountCompletedRuns(ctx, domain.RunPlan)
	if err != nil {
		return err
	}
	challenges, err := db.CountCompletedRuns(ctx, domain.RunChallenge)
	if err != nil {
		return err
	}
	achievements, err := db.ListAchievements(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Distinct segments read (main): %d\n", completed)
	fmt.Printf("Completions by context: main=%d plan=%d challenge=%d\n", sources.Main, sources.Plan, sources.Challenge)
	fmt.Printf("Streak: current=%d longest=%d last=%s valid=%t\n",
		streak.CurrentStreak, streak.LongestStreak, streak.LastReadDate, streak.Valid())
	fmt.Printf("Books completed: %d\n", len(books))
	for _, b := range books {
		fmt.Printf("  %s at %s\n", b.BookCode, b.CompletedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("Runs completed: plans=%d challenges=%d\n", plans, challenges)
	fmt.Printf("Reading time: %.1f min\n", float64(readingMs)/60000)
	fmt.Println("Reactions:")
	for name, n := range emoji {
		if n > 0 {
			fmt.Printf("  %s: %d\n", name, n)
		}
	}
	fmt.Printf("Achievement rows: %d\n", len(achievements))
	for id, a := range achievements {
		fmt.Printf("  %s %d/%d completed=%t\n", id, a.Progress, a.MaxProgress, a.IsCompleted)
	}
	return nil
}

func dumpState(path string) error {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var pretty any
				if err := json.Unmarshal(val, &pretty); err != nil {
					fmt.Printf("%s = <%d bytes, not JSON>\n", item.Key(), len(val))
					return nil
				}
				out, _ := json.Marshal(pretty)
				fmt.Printf("%s = %s\n", item.Key(), out)
				return nil
			})
			if err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Records: %d\n", count)
	return nil
}
