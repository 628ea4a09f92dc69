package dataset

import (
	"errors"
	"io"
	"testing"
)

// TestBatchFlat_Shapes: flattening preserves row/record counts and the
// batch pad lengths.
func TestBatchFlat_Shapes(t *testing.T) {
	r1 := batchRecord(4, 6, 8)
	r1.AnswerLabels = []Span{{Start: 1, End: 2}}
	r1.BestMatchDocIDs = []int{0}
	r1.BestMatchScores = []float64{0.5}
	r2 := batchRecord(3, 5)

	d := testDataset(5, 500, 60, []*Record{r1, r2}, nil, nil)
	b := collectBatches(t, d, "train", 2, 0, false)[0]

	flat, err := b.Flat()
	if err != nil {
		t.Fatalf("Flat failed: %v", err)
	}
	if flat.Rows != 4 || flat.Records != 2 {
		t.Fatalf("unexpected flat dims: rows=%d records=%d", flat.Rows, flat.Records)
	}
	if flat.PassageLen != b.PaddedPassageLen || flat.QuestionLen != b.PaddedQuestionLen {
		t.Fatalf("flat pad lengths disagree with batch")
	}
	if len(flat.PassageIDs) != flat.Rows*flat.PassageLen {
		t.Fatalf("flat passage buffer length mismatch: %d vs %d", len(flat.PassageIDs), flat.Rows*flat.PassageLen)
	}
	if len(flat.QuestionIDs) != flat.Rows*flat.QuestionLen {
		t.Fatalf("flat question buffer length mismatch")
	}
	if flat.AnswerNum != 1 || len(flat.StartIDs) != 2 || len(flat.MatchScores) != 2 {
		t.Fatalf("unexpected label buffers: answers=%d starts=%d scores=%d",
			flat.AnswerNum, len(flat.StartIDs), len(flat.MatchScores))
	}

	inputs, labels, err := flat.ToGomlxTensors()
	if err != nil {
		t.Fatalf("ToGomlxTensors failed: %v", err)
	}
	if len(inputs) != 2 || len(labels) != 3 {
		t.Fatalf("unexpected tensor counts: inputs=%d labels=%d", len(inputs), len(labels))
	}
	for i, tensor := range append(inputs, labels...) {
		if tensor == nil {
			t.Fatalf("tensor %d is nil", i)
		}
	}
}

// TestTensorBatches_YieldAndRestart: a pass yields every batch then io.EOF;
// Restart begins a fresh pass.
func TestTensorBatches_YieldAndRestart(t *testing.T) {
	recs := make([]*Record, 5)
	for i := range recs {
		recs[i] = batchRecord(3, 4)
	}
	d := testDataset(5, 500, 60, recs, nil, nil)

	tb, err := d.TensorBatches("train", 2, 0, false)
	if err != nil {
		t.Fatalf("TensorBatches failed: %v", err)
	}
	if tb.Name() != "rcdata/train" {
		t.Fatalf("unexpected name %q", tb.Name())
	}

	for pass := range 2 {
		count := 0
		for {
			spec, inputs, labels, err := tb.Yield()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("Yield error: %v", err)
			}
			if _, ok := spec.(*Batch); !ok {
				t.Fatalf("expected *Batch spec, got %T", spec)
			}
			if len(inputs) == 0 || len(labels) == 0 {
				t.Fatalf("expected tensors from Yield")
			}
			count++
		}
		if count != 3 {
			t.Fatalf("pass %d: expected 3 batches, got %d", pass, count)
		}
		if err := tb.Restart(); err != nil {
			t.Fatalf("Restart failed: %v", err)
		}
	}
}

// TestTensorBatches_InvalidPartition.
func TestTensorBatches_InvalidPartition(t *testing.T) {
	d := testDataset(5, 500, 60, nil, nil, nil)
	if _, err := d.TensorBatches("validation", 2, 0, false); !errors.Is(err, ErrInvalidPartition) {
		t.Fatalf("expected ErrInvalidPartition, got %v", err)
	}
}
