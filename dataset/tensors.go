package dataset

import (
	"fmt"
	"io"
	"iter"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// BatchFlat stores one mini-batch as contiguous buffers plus shape
// metadata. Different gomlx versions expose different tensor constructors,
// so the flat form keeps the conversion step small and lets callers build
// whatever tensor type their training code wants.
type BatchFlat struct {
	QuestionIDs []int32 // Rows * QuestionLen
	PassageIDs  []int32 // Rows * PassageLen
	StartIDs    []int32 // Records * AnswerNum
	EndIDs      []int32 // Records * AnswerNum
	MatchScores []float32

	Rows        int
	Records     int
	QuestionLen int
	PassageLen  int
	AnswerNum   int
}

// Flat flattens the batch's token-id and label fields into contiguous
// buffers, verifying that every row honors the batch pad lengths.
func (b *Batch) Flat() (*BatchFlat, error) {
	f := &BatchFlat{
		Rows:        len(b.PassageTokenIDs),
		Records:     len(b.RawData),
		QuestionLen: b.PaddedQuestionLen,
		PassageLen:  b.PaddedPassageLen,
	}
	if f.Records > 0 {
		f.AnswerNum = len(b.StartIDs[0])
	}

	var err error
	if f.QuestionIDs, err = flattenInt32(b.QuestionTokenIDs, f.QuestionLen, "question row"); err != nil {
		return nil, err
	}
	if f.PassageIDs, err = flattenInt32(b.PassageTokenIDs, f.PassageLen, "passage row"); err != nil {
		return nil, err
	}
	if f.StartIDs, err = flattenInt32(b.StartIDs, f.AnswerNum, "start ids"); err != nil {
		return nil, err
	}
	if f.EndIDs, err = flattenInt32(b.EndIDs, f.AnswerNum, "end ids"); err != nil {
		return nil, err
	}

	f.MatchScores = make([]float32, 0, f.Records*f.AnswerNum)
	for i, row := range b.MatchScores {
		if len(row) != f.AnswerNum {
			return nil, fmt.Errorf("match scores %d has wrong width: expected %d, got %d", i, f.AnswerNum, len(row))
		}
		for _, v := range row {
			f.MatchScores = append(f.MatchScores, float32(v))
		}
	}

	return f, nil
}

func flattenInt32(rows [][]int, width int, what string) ([]int32, error) {
	flat := make([]int32, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%s %d has wrong width: expected %d, got %d", what, i, width, len(row))
		}
		for _, v := range row {
			flat = append(flat, int32(v))
		}
	}
	return flat, nil
}

// ToGomlxTensors converts the flat batch into gomlx tensors: question and
// passage id matrices as inputs, the remapped span bounds and match scores
// as labels. Empty dimensions produce empty but well-formed tensors.
func (f *BatchFlat) ToGomlxTensors() (inputs, labels []*tensors.Tensor, err error) {
	inputs = []*tensors.Tensor{
		tensors.FromAnyValue(reshapeInt32(f.QuestionIDs, f.Rows, f.QuestionLen)),
		tensors.FromAnyValue(reshapeInt32(f.PassageIDs, f.Rows, f.PassageLen)),
	}
	labels = []*tensors.Tensor{
		tensors.FromAnyValue(reshapeInt32(f.StartIDs, f.Records, f.AnswerNum)),
		tensors.FromAnyValue(reshapeInt32(f.EndIDs, f.Records, f.AnswerNum)),
		tensors.FromAnyValue(reshapeFloat32(f.MatchScores, f.Records, f.AnswerNum)),
	}
	return inputs, labels, nil
}

func reshapeInt32(flat []int32, rows, cols int) [][]int32 {
	out := make([][]int32, rows)
	for i := range rows {
		out[i] = flat[i*cols : (i+1)*cols]
	}
	return out
}

func reshapeFloat32(flat []float32, rows, cols int) [][]float32 {
	out := make([][]float32, rows)
	for i := range rows {
		out[i] = flat[i*cols : (i+1)*cols]
	}
	return out
}

// TensorBatches adapts a partition's mini-batch sequence to the gomlx
// train.Dataset interface so a training loop can pull tensor batches
// directly. Yield reports io.EOF when a pass over the partition is done;
// Restart begins a new pass (reshuffled when shuffle is on).
type TensorBatches struct {
	ds        *Dataset
	setName   string
	batchSize int
	padID     int
	shuffle   bool

	next func() (*Batch, bool)
	stop func()
}

// TensorBatches validates the selector up front and returns an adapter
// positioned at the start of a pass.
func (d *Dataset) TensorBatches(setName string, batchSize, padID int, shuffle bool) (*TensorBatches, error) {
	if _, err := d.MiniBatches(setName, batchSize, padID, shuffle); err != nil {
		return nil, err
	}
	t := &TensorBatches{
		ds:        d,
		setName:   setName,
		batchSize: batchSize,
		padID:     padID,
		shuffle:   shuffle,
	}
	if err := t.Restart(); err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the name of the dataset.
func (t *TensorBatches) Name() string {
	return "rcdata/" + t.setName
}

// Yield returns the next batch as gomlx tensors. The spec value is the
// originating *Batch, giving the consumer access to RawData and the pad
// lengths.
func (t *TensorBatches) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	b, ok := t.next()
	if !ok {
		return nil, nil, nil, io.EOF
	}
	flat, err := b.Flat()
	if err != nil {
		return nil, nil, nil, err
	}
	inputs, labels, err = flat.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return b, inputs, labels, nil
}

// Restart resets the adapter for a new epoch.
func (t *TensorBatches) Restart() error {
	if t.stop != nil {
		t.stop()
	}
	seq, err := t.ds.MiniBatches(t.setName, t.batchSize, t.padID, t.shuffle)
	if err != nil {
		return err
	}
	t.next, t.stop = iter.Pull(seq)
	return nil
}
