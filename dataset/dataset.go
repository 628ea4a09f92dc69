package dataset

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// This package loads reading-comprehension question records from
// line-delimited JSON files, filters malformed training samples into a
// badcase log, converts tokens to vocabulary ids, and assembles
// dynamically-padded mini-batches for model training and inference.

var (
	// ErrInvalidPartition is returned when a partition selector names none
	// of train, dev or test.
	ErrInvalidPartition = errors.New("no such partition")

	// ErrNoBadcaseSink is returned when a training-mode load is requested
	// without a badcase sample log configured.
	ErrNoBadcaseSink = errors.New("badcase sample log required when loading training files")
)

// Vocab maps token sequences to integer id sequences. Implementations must
// be total and deterministic; handling of unknown tokens is up to the
// implementation.
type Vocab interface {
	ConvertToIDs(tokens []string) []int
}

// Options configures a Dataset.
type Options struct {
	// MaxPassageNum caps how many passages per record a batch considers.
	MaxPassageNum int

	// MaxPassageLen caps the padded passage length of a batch.
	MaxPassageLen int

	// MaxQuestionLen caps the padded question length of a batch.
	MaxQuestionLen int

	// TrainFiles, DevFiles and TestFiles are line-delimited JSON record
	// files. Training files get quality filtering; dev/test files are
	// loaded as-is.
	TrainFiles []string
	DevFiles   []string
	TestFiles  []string

	// BadcaseSampleLog is the path rejected training records are appended
	// to. Required whenever TrainFiles is non-empty.
	BadcaseSampleLog string

	// Seed controls the shuffling RNG. If zero, a time-based seed is used.
	Seed int64

	// Logger receives load statistics and batching warnings. If nil, a
	// no-op logger is used.
	Logger *zerolog.Logger
}

// Dataset holds the three record partitions and produces token streams and
// mini-batches over them. It is built once by New and is safe for a single
// consumer; ConvertToIDs mutates records in place and must happen before
// batch iteration.
type Dataset struct {
	maxPassageNum  int
	maxPassageLen  int
	maxQuestionLen int

	badcasePath string

	train []*Record
	dev   []*Record
	test  []*Record

	log zerolog.Logger
	rng *rand.Rand
}

// New loads all configured partitions and returns the assembled Dataset.
// Training files require a configured badcase sample log; a missing log is
// reported as ErrNoBadcaseSink before anything is read.
func New(opts Options) (*Dataset, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	d := &Dataset{
		maxPassageNum:  opts.MaxPassageNum,
		maxPassageLen:  opts.MaxPassageLen,
		maxQuestionLen: opts.MaxQuestionLen,
		badcasePath:    opts.BadcaseSampleLog,
		log:            log,
		rng:            rand.New(rand.NewSource(seed)),
	}

	if len(opts.TrainFiles) > 0 {
		if d.badcasePath == "" {
			return nil, ErrNoBadcaseSink
		}
		for _, path := range opts.TrainFiles {
			recs, rejected, err := d.loadFile(path, true)
			if err != nil {
				return nil, fmt.Errorf("failed to load train file %s: %w", path, err)
			}
			d.train = append(d.train, recs...)
			if rejected > 0 {
				d.log.Info().Str("file", path).Int("rejected", rejected).Msg("badcase samples filtered")
			}
		}
		d.log.Info().Int("questions", len(d.train)).Msg("train set loaded")
	}
	if len(opts.DevFiles) > 0 {
		for _, path := range opts.DevFiles {
			recs, _, err := d.loadFile(path, false)
			if err != nil {
				return nil, fmt.Errorf("failed to load dev file %s: %w", path, err)
			}
			d.dev = append(d.dev, recs...)
		}
		d.log.Info().Int("questions", len(d.dev)).Msg("dev set loaded")
	}
	if len(opts.TestFiles) > 0 {
		for _, path := range opts.TestFiles {
			recs, _, err := d.loadFile(path, false)
			if err != nil {
				return nil, fmt.Errorf("failed to load test file %s: %w", path, err)
			}
			d.test = append(d.test, recs...)
		}
		d.log.Info().Int("questions", len(d.test)).Msg("test set loaded")
	}

	return d, nil
}

// Partition returns the records of one named partition.
func (d *Dataset) Partition(setName string) ([]*Record, error) {
	switch setName {
	case "train":
		return d.train, nil
	case "dev":
		return d.dev, nil
	case "test":
		return d.test, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPartition, setName)
	}
}

// partitions resolves a selector to an ordered list of record sets. The
// empty selector means train, dev and test in that order.
func (d *Dataset) partitions(setName string) ([][]*Record, error) {
	if setName == "" {
		return [][]*Record{d.train, d.dev, d.test}, nil
	}
	set, err := d.Partition(setName)
	if err != nil {
		return nil, err
	}
	return [][]*Record{set}, nil
}

// WordIter returns a lazy, restartable sequence of every token in the
// selected partition: per record, the question tokens first, then each
// document's passage tokens. An empty selector iterates train, dev and
// test in that order. Intended for vocabulary building.
func (d *Dataset) WordIter(setName string) (iter.Seq[string], error) {
	sets, err := d.partitions(setName)
	if err != nil {
		return nil, err
	}
	return func(yield func(string) bool) {
		for _, set := range sets {
			for _, rec := range set {
				for _, tok := range rec.SegmentedQuestion {
					if !yield(tok) {
						return
					}
				}
				for _, doc := range rec.Documents {
					for _, tok := range doc.SegmentedPassage {
						if !yield(tok) {
							return
						}
					}
				}
			}
		}
	}, nil
}

// ConvertToIDs attaches vocabulary ids to every record in every loaded
// partition: QuestionTokenIDs from the segmented question and, per
// document, PassageTokenIDs from the segmented passage. Re-invocation
// overwrites previous ids.
func (d *Dataset) ConvertToIDs(v Vocab) {
	for _, set := range [][]*Record{d.train, d.dev, d.test} {
		for _, rec := range set {
			rec.QuestionTokenIDs = v.ConvertToIDs(rec.SegmentedQuestion)
			for i := range rec.Documents {
				doc := &rec.Documents[i]
				doc.PassageTokenIDs = v.ConvertToIDs(doc.SegmentedPassage)
			}
		}
	}
}

// Lengths collects raw question and passage token counts over a partition
// (empty selector = all partitions), one entry per question and one per
// candidate document. Used for dataset inspection and histogram plots.
func (d *Dataset) Lengths(setName string) (questionLens, passageLens []int, err error) {
	sets, err := d.partitions(setName)
	if err != nil {
		return nil, nil, err
	}
	for _, set := range sets {
		for _, rec := range set {
			questionLens = append(questionLens, len(rec.SegmentedQuestion))
			for _, doc := range rec.Documents {
				passageLens = append(passageLens, len(doc.SegmentedPassage))
			}
		}
	}
	return questionLens, passageLens, nil
}
