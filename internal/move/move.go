// Package move implements the Move Detector (spec §4.3): it pairs
// deleted and created entries by content similarity above a threshold.
//
// Similarity scoring uses github.com/sergi/go-diff/diffmatchpatch (Myers
// diff / Levenshtein distance), matching the engine's splice policy's
// choice of diff library (internal/engine). Candidate ranking reuses the
// teacher's generic internal/queue.PriorityQueue, repurposed here to
// rank move candidates by similarity instead of its original (unused in
// this repo) role.
package move

import (
	"sort"

	dmp "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/pushwork/pushwork/internal/detect"
	"github.com/pushwork/pushwork/internal/mime"
	"github.com/pushwork/pushwork/internal/queue"
)

const (
	sampleWindow    = 1024 // 1 KiB
	largeFileCutoff = 4096 // 4 KiB, spec §4.3
	sizeRatioCutoff = 0.5
)

// Candidate is a proposed rename pairing (spec §4.3).
type Candidate struct {
	FromPath   string
	ToPath     string
	Similarity float64
	NewContent []byte // non-nil when the move also modified content
}

// Conflict records an ambiguous move match dropped from consideration.
type Conflict struct {
	Reason   string
	FromPath string
	ToPath   string
}

// Result is the move detector's output.
type Result struct {
	Candidates       []Candidate
	RemainingChanges []detect.DetectedChange
	Conflicts        []Conflict
}

// Detect partitions changes into deleted/created entries and pairs them
// by similarity above threshold (spec §4.3). priorContent maps a
// deleted path to its last-synced bytes (read from the CRDT document at
// the snapshot head before the local delete is applied) — required to
// score a deletion against candidate destinations.
func Detect(changes []detect.DetectedChange, priorContent map[string][]byte, threshold float64) Result {
	var deleted, created, remaining []detect.DetectedChange
	for _, c := range changes {
		switch {
		case c.ChangeType == detect.LocalOnly && c.FileType == detect.TypeFile && !c.HasLocal():
			deleted = append(deleted, c)
		case c.ChangeType == detect.LocalOnly && c.FileType == detect.TypeFile && c.HasLocal():
			created = append(created, c)
		default:
			remaining = append(remaining, c)
		}
	}

	if len(deleted) == 0 || len(created) == 0 {
		remaining = append(remaining, deleted...)
		remaining = append(remaining, created...)
		return Result{RemainingChanges: remaining}
	}

	type match struct {
		toPath     string
		score      float64
		newContent []byte
	}
	bestPerDeleted := map[string]match{}
	bestDeletedPerCreated := map[string][]string{} // created path -> deleted paths scoring above threshold

	for _, del := range deleted {
		prior, ok := priorContent[del.Path]
		if !ok {
			continue
		}
		pq := queue.NewPriorityQueue[match]()
		for _, cre := range created {
			score := Similarity(prior, cre.LocalContent)
			if score < threshold {
				continue
			}
			// heap is a min-heap on Priority; negate to pop highest score first
			pq.Enqueue(match{toPath: cre.Path, score: score, newContent: cre.LocalContent}, -int(score*1e6))
			bestDeletedPerCreated[cre.Path] = append(bestDeletedPerCreated[cre.Path], del.Path)
		}
		ranked := pq.DequeueAll()
		if len(ranked) == 0 {
			continue
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			return ranked[i].toPath < ranked[j].toPath
		})
		best := ranked[0]
		var newContent []byte
		if !bytesEqual(prior, best.newContent) {
			newContent = best.newContent
		}
		bestPerDeleted[del.Path] = match{toPath: best.toPath, score: best.score, newContent: newContent}
	}

	var conflicts []Conflict
	usedCreated := map[string]string{} // created path -> chosen deleted path (for same-destination conflicts)
	for from, m := range bestPerDeleted {
		if existing, taken := usedCreated[m.toPath]; taken {
			conflicts = append(conflicts, Conflict{Reason: "multiple deletions target the same destination", FromPath: existing, ToPath: m.toPath})
			conflicts = append(conflicts, Conflict{Reason: "multiple deletions target the same destination", FromPath: from, ToPath: m.toPath})
			delete(bestPerDeleted, existing)
			delete(bestPerDeleted, from)
			continue
		}
		usedCreated[m.toPath] = from
	}
	for created, froms := range bestDeletedPerCreated {
		if len(froms) > 1 {
			// check how many actually survived as the winner for this created path
			winners := 0
			for _, f := range froms {
				if m, ok := bestPerDeleted[f]; ok && m.toPath == created {
					winners++
				}
			}
			if winners > 1 {
				for _, f := range froms {
					if m, ok := bestPerDeleted[f]; ok && m.toPath == created {
						conflicts = append(conflicts, Conflict{Reason: "one deletion has multiple targets above threshold", FromPath: f, ToPath: created})
						delete(bestPerDeleted, f)
					}
				}
			}
		}
	}

	matchedDeleted := map[string]bool{}
	matchedCreated := map[string]bool{}
	var candidates []Candidate
	for from, m := range bestPerDeleted {
		candidates = append(candidates, Candidate{FromPath: from, ToPath: m.toPath, Similarity: m.score, NewContent: m.newContent})
		matchedDeleted[from] = true
		matchedCreated[m.toPath] = true
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].FromPath < candidates[j].FromPath })

	for _, d := range deleted {
		if !matchedDeleted[d.Path] {
			remaining = append(remaining, d)
		}
	}
	for _, c := range created {
		if !matchedCreated[c.Path] {
			remaining = append(remaining, c)
		}
	}

	return Result{Candidates: candidates, RemainingChanges: remaining, Conflicts: conflicts}
}

// Similarity scores two byte slices per spec §4.3's rules: exact match
// is 1.0; a size-ratio short-circuit or binary content is 0.0; small
// text compares in full; large text samples three fixed windows.
func Similarity(a, b []byte) float64 {
	if bytesEqual(a, b) {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	sizeA, sizeB := float64(len(a)), float64(len(b))
	maxSize := sizeA
	if sizeB > maxSize {
		maxSize = sizeB
	}
	if abs(sizeA-sizeB)/maxSize > sizeRatioCutoff {
		return 0.0
	}

	if mime.IsBinary(a) || mime.IsBinary(b) {
		return 0.0
	}

	if len(a) < largeFileCutoff && len(b) < largeFileCutoff {
		return stringSimilarity(string(a), string(b))
	}

	windows := func(buf []byte) [3]string {
		n := len(buf)
		mid := n / 2
		start := mid - sampleWindow/2
		if start < 0 {
			start = 0
		}
		end := start + sampleWindow
		if end > n {
			end = n
		}
		beg := buf[:min(sampleWindow, n)]
		midw := buf[start:end]
		tailStart := n - sampleWindow
		if tailStart < 0 {
			tailStart = 0
		}
		tail := buf[tailStart:]
		return [3]string{string(beg), string(midw), string(tail)}
	}
	wa, wb := windows(a), windows(b)
	var total float64
	for i := 0; i < 3; i++ {
		total += stringSimilarity(wa[i], wb[i])
	}
	return total / 3
}

// stringSimilarity normalizes Levenshtein edit distance over the Myers
// diff into a [0,1] similarity score.
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	differ := dmp.New()
	diffs := differ.DiffMain(a, b, false)
	distance := differ.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
