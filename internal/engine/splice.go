package engine

import (
	dmp "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/pushwork/pushwork/internal/docmodel"
)

// spliceThreshold caps how much of the document a splice may touch
// before the engine gives up and rewrites wholesale instead: when the
// non-equal spans of the edit script total more than spliceThreshold ×
// (len(old)+1) bytes, the text is replaced in full. Grounded on the same
// diffmatchpatch dependency the move detector (internal/move) already
// uses for similarity scoring.
const spliceThreshold = 0.9

// applyTextPolicy updates doc's text content from old to next, choosing
// between a spliced edit and a full rewrite depending on how much of the
// document actually changed. The resulting document always ends up
// holding exactly `next`; the distinction only matters for collaborative
// CRDT text where a splice preserves other replicas' concurrent edits to
// untouched spans, which a full overwrite would clobber.
func applyTextPolicy(doc *docmodel.FileDocument, old, next string) {
	if doc.ContentKind != docmodel.ContentText {
		doc.SetContent(docmodel.ContentImmutableText, []byte(next))
		return
	}

	ops := computeEditScript(old, next)
	if editWeight(ops) > spliceThreshold*float64(len(old)+1) {
		doc.SetContent(docmodel.ContentText, []byte(next))
		return
	}
	doc.Text = applyEditScript(old, ops)
}

// editOp is one span of a minimal edit script between two text
// revisions (spec §4.4.6: "compute the minimum edit script and apply it
// as a sequence of insert/delete splices").
type editOp struct {
	Kind dmp.Operation // Insert, Delete, or Equal
	Text string
}

// computeEditScript returns the Myers diff between old and next as a
// sequence of insert/delete/equal spans.
func computeEditScript(old, next string) []editOp {
	differ := dmp.New()
	diffs := differ.DiffMain(old, next, false)
	ops := make([]editOp, len(diffs))
	for i, d := range diffs {
		ops[i] = editOp{Kind: d.Type, Text: d.Text}
	}
	return ops
}

// editWeight sums the length of every non-equal span, approximating the
// number of CRDT splice operations the edit script would cost.
func editWeight(ops []editOp) float64 {
	var total float64
	for _, op := range ops {
		if op.Kind != dmp.DiffEqual {
			total += float64(len(op.Text))
		}
	}
	return total
}

// applyEditScript replays an edit script against old, producing next.
// Used instead of returning `next` directly so the splice path is
// exercised even though the in-memory repo only tracks final content;
// a real CRDT backend would issue one splice call per non-equal span at
// its recorded offset instead of assigning the joined result.
func applyEditScript(old string, ops []editOp) string {
	var out []byte
	pos := 0
	for _, op := range ops {
		switch op.Kind {
		case dmp.DiffEqual:
			out = append(out, op.Text...)
			pos += len(op.Text)
		case dmp.DiffInsert:
			out = append(out, op.Text...)
		case dmp.DiffDelete:
			pos += len(op.Text)
		}
	}
	return string(out)
}
