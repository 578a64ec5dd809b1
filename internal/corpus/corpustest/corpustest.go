// Package corpustest provides a small fixed corpus for tests.
package corpustest

import (
	"github.com/listenupapp/readup/internal/corpus"
)

// SampleYAML is a two-testament corpus with intro segments, two plans and two
// challenges. Ordinals run 1..14 in file order; the ordinal boundary that
// agrees with the book mapping is 9.
const SampleYAML = `
books:
  - code: Gen
    name: Genesis
    testament: old
    segments:
      - {id: S000, intro: true}
      - {id: S001}
      - {id: S002}
      - {id: S003}
      - {id: S004}
      - {id: S005}
  - code: Exo
    name: Exodus
    testament: old
    segments:
      - {id: S006}
      - {id: S007}
      - {id: S008}
  - code: Mat
    name: Matthew
    testament: new
    segments:
      - {id: S009, intro: true}
      - {id: S010}
      - {id: S011}
  - code: Jhn
    name: John
    testament: new
    segments:
      - {id: S012}
      - {id: S013}
plans:
  - id: chronological
    title: Chronological
    segments: [S001, S002, S006, S010]
  - id: gospels
    title: Gospels in a month
    segments: [S009, S010, S011, S012, S013]
challenges:
  - id: AdventJourney
    title: Advent Journey
    segments: [S009, S010, S011]
  - id: Beginnings
    title: Beginnings
    segments: [S000, S001, S002]
`

// Boundary is the ordinal testament boundary matching SampleYAML's books.
const Boundary = 9

// Sample parses SampleYAML.
func Sample() *corpus.Corpus {
	c, err := corpus.Parse([]byte(SampleYAML))
	if err != nil {
		panic(err)
	}
	return c
}
