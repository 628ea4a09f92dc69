package dataset

import (
	"fmt"
	"iter"
)

// Batch is one assembled mini-batch. The per-row fields all have
// len(RawData) * maxPassageNum entries, laid out row-major by record then
// by passage slot: row r*maxPassageNum + k is record r's passage k. The
// per-record label fields (StartIDs, EndIDs, MatchScores) have one entry
// per record, each of the batch-wide max answer count width.
type Batch struct {
	// RawData references the original records in row-group order.
	RawData []*Record

	QuestionTokenIDs [][]int
	PosQuestions     [][]int
	KeywordQuestions [][]int
	QuestionLength   []int

	PassageTokenIDs [][]int
	PosPassages     [][]int
	KeywordPassages [][]int
	PassageLength   []int

	// IsSelected is the per-row ground-truth selection flag as 0/1;
	// always 0 for padding rows and for test-mode batches.
	IsSelected []int

	// StartIDs and EndIDs hold answer-span bounds remapped into the
	// flattened multi-passage coordinate space: passage k of a record
	// starts at flattened offset k * PaddedPassageLen.
	StartIDs    [][]int
	EndIDs      [][]int
	MatchScores [][]float64

	// PaddedPassageLen and PaddedQuestionLen are the per-batch pad
	// lengths every row was padded or truncated to.
	PaddedPassageLen  int
	PaddedQuestionLen int
}

// MiniBatches returns a lazy sequence of batches covering the named
// partition exactly once per iteration, the last batch possibly smaller
// than batchSize. With shuffle, each iteration of the returned sequence
// draws a fresh uniform permutation of the partition; otherwise records
// are visited in partition order. Selecting the test partition produces
// batches with zeroed label fields and selection flags.
func (d *Dataset) MiniBatches(setName string, batchSize, padID int, shuffle bool) (iter.Seq[*Batch], error) {
	data, err := d.Partition(setName)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	testing := setName == "test"

	return func(yield func(*Batch) bool) {
		indices := make([]int, len(data))
		for i := range indices {
			indices[i] = i
		}
		if shuffle {
			d.rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		for start := 0; start < len(data); start += batchSize {
			end := min(start+batchSize, len(data))
			if !yield(d.oneMiniBatch(data, indices[start:end], padID, testing)) {
				return
			}
		}
	}, nil
}

// oneMiniBatch assembles a single batch from the selected records.
func (d *Dataset) oneMiniBatch(data []*Record, indices []int, padID int, testing bool) *Batch {
	b := &Batch{RawData: make([]*Record, 0, len(indices))}
	for _, i := range indices {
		b.RawData = append(b.RawData, data[i])
	}

	// Per-batch caps: passages capped by configuration, answers by the
	// widest record (zero answers everywhere yields zero-width labels).
	maxPassageNum := 0
	maxAnsNum := 0
	for _, rec := range b.RawData {
		maxPassageNum = max(maxPassageNum, len(rec.Documents))
		maxAnsNum = max(maxAnsNum, len(rec.AnswerLabels))
	}
	maxPassageNum = min(maxPassageNum, d.maxPassageNum)

	for _, rec := range b.RawData {
		for pidx := range maxPassageNum {
			if pidx < len(rec.Documents) {
				doc := &rec.Documents[pidx]
				b.QuestionTokenIDs = append(b.QuestionTokenIDs, rec.QuestionTokenIDs)
				b.QuestionLength = append(b.QuestionLength, len(rec.QuestionTokenIDs))
				b.PassageTokenIDs = append(b.PassageTokenIDs, doc.PassageTokenIDs)
				b.PassageLength = append(b.PassageLength, min(len(doc.PassageTokenIDs), d.maxPassageLen))
				b.PosQuestions = append(b.PosQuestions, rec.PosQuestion)
				b.KeywordQuestions = append(b.KeywordQuestions, rec.KeywordQuestion)
				b.PosPassages = append(b.PosPassages, doc.PosPassage)
				b.KeywordPassages = append(b.KeywordPassages, doc.KeywordPassage)
				sel := 0
				if !testing && doc.IsSelected {
					sel = 1
				}
				b.IsSelected = append(b.IsSelected, sel)
			} else {
				// Padding row: the record has fewer documents than the
				// batch's passage cap.
				b.QuestionTokenIDs = append(b.QuestionTokenIDs, nil)
				b.QuestionLength = append(b.QuestionLength, 0)
				b.PassageTokenIDs = append(b.PassageTokenIDs, nil)
				b.PassageLength = append(b.PassageLength, 0)
				b.PosQuestions = append(b.PosQuestions, nil)
				b.KeywordQuestions = append(b.KeywordQuestions, nil)
				b.PosPassages = append(b.PosPassages, nil)
				b.KeywordPassages = append(b.KeywordPassages, nil)
				b.IsSelected = append(b.IsSelected, 0)
			}
		}
	}

	b.dynamicPadding(d.maxPassageLen, d.maxQuestionLen, padID)

	// The answer-span remapping strides by the padded passage length, so
	// it must run after padding lengths are fixed.
	if !testing {
		for _, rec := range b.RawData {
			starts := make([]int, 0, maxAnsNum)
			ends := make([]int, 0, maxAnsNum)
			scores := make([]float64, 0, maxAnsNum)
			for aidx := range maxAnsNum {
				if aidx < len(rec.BestMatchDocIDs) {
					docID := rec.BestMatchDocIDs[aidx]
					if docID >= maxPassageNum {
						// The passage cap discarded the answer's document;
						// the flattened offset lands outside the batch.
						d.log.Warn().
							Int("doc_id", docID).
							Int("max_passage_num", maxPassageNum).
							Msg("answer points at a passage beyond the batch cap")
					}
					goldOffset := b.PaddedPassageLen * docID
					starts = append(starts, goldOffset+rec.AnswerLabels[aidx].Start)
					ends = append(ends, goldOffset+rec.AnswerLabels[aidx].End)
					scores = append(scores, rec.BestMatchScores[aidx])
				} else {
					starts = append(starts, 0)
					ends = append(ends, 0)
					scores = append(scores, 0)
				}
			}
			b.StartIDs = append(b.StartIDs, starts)
			b.EndIDs = append(b.EndIDs, ends)
			b.MatchScores = append(b.MatchScores, scores)
		}
	} else {
		for range b.RawData {
			b.StartIDs = append(b.StartIDs, make([]int, maxAnsNum))
			b.EndIDs = append(b.EndIDs, make([]int, maxAnsNum))
			b.MatchScores = append(b.MatchScores, make([]float64, maxAnsNum))
		}
	}

	return b
}

// dynamicPadding computes the per-batch pad lengths, capped by the
// configured maxima, and right-pads or truncates every row to exactly that
// length: token ids with padID, tag rows with the -1 sentinel (valid tag
// ids are non-negative).
func (b *Batch) dynamicPadding(maxPLen, maxQLen, padID int) {
	padPLen := 0
	for _, l := range b.PassageLength {
		padPLen = max(padPLen, l)
	}
	padPLen = min(padPLen, maxPLen)

	padQLen := 0
	for _, l := range b.QuestionLength {
		padQLen = max(padQLen, l)
	}
	padQLen = min(padQLen, maxQLen)

	for i, ids := range b.PassageTokenIDs {
		b.PassageTokenIDs[i] = padTo(ids, padPLen, padID)
	}
	for i, ids := range b.QuestionTokenIDs {
		b.QuestionTokenIDs[i] = padTo(ids, padQLen, padID)
	}
	for i, tags := range b.PosQuestions {
		b.PosQuestions[i] = padTo(tags, padQLen, -1)
	}
	for i, tags := range b.KeywordQuestions {
		b.KeywordQuestions[i] = padTo(tags, padQLen, -1)
	}
	for i, tags := range b.PosPassages {
		b.PosPassages[i] = padTo(tags, padPLen, -1)
	}
	for i, tags := range b.KeywordPassages {
		b.KeywordPassages[i] = padTo(tags, padPLen, -1)
	}

	b.PaddedPassageLen = padPLen
	b.PaddedQuestionLen = padQLen
}

// padTo returns a fresh slice of exactly length elements: seq right-padded
// with pad, or silently truncated when longer. The input is never mutated;
// batch rows alias record-owned slices until this runs.
func padTo(seq []int, length, pad int) []int {
	out := make([]int, length)
	n := copy(out, seq)
	for i := n; i < length; i++ {
		out[i] = pad
	}
	return out
}
