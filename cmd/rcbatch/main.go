// Command rcbatch loads a reading-comprehension dataset, builds a token
// index over it, and runs one full pass of mini-batch assembly. It is a
// smoke tool: it validates that every configured file loads, reports
// filtering and batch statistics, and exits.
package main

import (
	"flag"
	"iter"
	"os"

	"github.com/rs/zerolog"

	"github.com/mquery/rcdata/config"
	"github.com/mquery/rcdata/dataset"
)

// indexVocab assigns ids in first-seen order over the whole dataset. It is
// only here to exercise id conversion and batching without a real
// vocabulary; id 0 doubles as the padding id.
type indexVocab struct {
	ids map[string]int
}

func newIndexVocab(words iter.Seq[string]) *indexVocab {
	v := &indexVocab{ids: make(map[string]int)}
	for tok := range words {
		if _, ok := v.ids[tok]; !ok {
			// 0 is reserved for padding.
			v.ids[tok] = len(v.ids) + 1
		}
	}
	return v
}

func (v *indexVocab) ConvertToIDs(tokens []string) []int {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		out[i] = v.ids[tok]
	}
	return out
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file (default: ./rcdata.yaml if present)")
	setName := flag.String("set", "train", "partition to batch: train, dev or test")
	batchSize := flag.Int("batch-size", 0, "override the configured batch size")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}

	ds, err := dataset.New(dataset.Options{
		MaxPassageNum:    cfg.MaxPassageNum,
		MaxPassageLen:    cfg.MaxPassageLen,
		MaxQuestionLen:   cfg.MaxQuestionLen,
		TrainFiles:       cfg.TrainFiles,
		DevFiles:         cfg.DevFiles,
		TestFiles:        cfg.TestFiles,
		BadcaseSampleLog: cfg.BadcaseSampleLog,
		Seed:             cfg.Seed,
		Logger:           &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dataset")
	}

	words, err := ds.WordIter("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to iterate words")
	}
	vocab := newIndexVocab(words)
	ds.ConvertToIDs(vocab)
	log.Info().Int("terms", len(vocab.ids)).Msg("token index built")

	batches, err := ds.MiniBatches(*setName, cfg.BatchSize, cfg.PaddingID, cfg.Shuffle)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create batch iterator")
	}

	numBatches, numRows := 0, 0
	for b := range batches {
		numBatches++
		numRows += len(b.PassageTokenIDs)
	}
	log.Info().
		Str("set", *setName).
		Int("batches", numBatches).
		Int("rows", numRows).
		Msg("mini-batch pass complete")
}
