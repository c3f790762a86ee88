package move

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pushwork/pushwork/internal/detect"
)

func TestSimilarityExactMatch(t *testing.T) {
	require.Equal(t, 1.0, Similarity([]byte("hello"), []byte("hello")))
}

func TestSimilarityEmptyIsZero(t *testing.T) {
	require.Equal(t, 0.0, Similarity([]byte(""), []byte("hello")))
}

func TestSimilaritySizeRatioShortCircuit(t *testing.T) {
	big := make([]byte, 1000)
	small := make([]byte, 10)
	require.Equal(t, 0.0, Similarity(big, small))
}

func TestDetectPairsDeleteAndCreateAboveThreshold(t *testing.T) {
	changes := []detect.DetectedChange{
		{Path: "old.txt", ChangeType: detect.LocalOnly, FileType: detect.TypeFile, LocalContent: nil},
		{Path: "new.txt", ChangeType: detect.LocalOnly, FileType: detect.TypeFile, LocalContent: []byte("same content with a tiny edit!")},
	}
	prior := map[string][]byte{"old.txt": []byte("same content with a tiny edit.")}

	result := Detect(changes, prior, 0.7)
	require.Len(t, result.Candidates, 1)
	require.Equal(t, "old.txt", result.Candidates[0].FromPath)
	require.Equal(t, "new.txt", result.Candidates[0].ToPath)
	require.Empty(t, result.RemainingChanges)
}

func TestDetectLeavesUnpairedChangesBelowThreshold(t *testing.T) {
	changes := []detect.DetectedChange{
		{Path: "old.txt", ChangeType: detect.LocalOnly, FileType: detect.TypeFile, LocalContent: nil},
		{Path: "new.txt", ChangeType: detect.LocalOnly, FileType: detect.TypeFile, LocalContent: []byte("entirely unrelated")},
	}
	prior := map[string][]byte{"old.txt": []byte("completely different stuff")}

	result := Detect(changes, prior, 0.9)
	require.Empty(t, result.Candidates)
	require.Len(t, result.RemainingChanges, 2)
}

func TestDetectNoOpWhenNoDeletesOrCreates(t *testing.T) {
	changes := []detect.DetectedChange{
		{Path: "a.txt", ChangeType: detect.BothChanged, FileType: detect.TypeFile},
	}
	result := Detect(changes, nil, 0.7)
	require.Empty(t, result.Candidates)
	require.Len(t, result.RemainingChanges, 1)
}
