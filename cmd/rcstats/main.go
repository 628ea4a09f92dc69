// Command rcstats renders passage- and question-length histograms for a
// loaded dataset, one PNG per field. Useful for picking max_passage_len
// and max_question_len caps.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mquery/rcdata/config"
	"github.com/mquery/rcdata/dataset"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (default: ./rcdata.yaml if present)")
	setName := flag.String("set", "", "partition to inspect: train, dev, test, or empty for all")
	outDir := flag.String("out", "plots", "output directory for generated plots")
	bins := flag.Int("bins", 40, "number of histogram bins")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ds, err := dataset.New(dataset.Options{
		MaxPassageNum:    cfg.MaxPassageNum,
		MaxPassageLen:    cfg.MaxPassageLen,
		MaxQuestionLen:   cfg.MaxQuestionLen,
		TrainFiles:       cfg.TrainFiles,
		DevFiles:         cfg.DevFiles,
		TestFiles:        cfg.TestFiles,
		BadcaseSampleLog: cfg.BadcaseSampleLog,
		Logger:           &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dataset")
	}

	questionLens, passageLens, err := ds.Lengths(*setName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to collect lengths")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create output directory")
	}
	if err := plotHist(*outDir, "question_lengths.png", "Question lengths (tokens)", questionLens, *bins); err != nil {
		log.Fatal().Err(err).Msg("failed to plot question lengths")
	}
	if err := plotHist(*outDir, "passage_lengths.png", "Passage lengths (tokens)", passageLens, *bins); err != nil {
		log.Fatal().Err(err).Msg("failed to plot passage lengths")
	}

	log.Info().
		Int("questions", len(questionLens)).
		Int("passages", len(passageLens)).
		Str("dir", *outDir).
		Msg("histograms written")
}

// plotHist writes a PNG histogram of the given lengths.
func plotHist(outDir, name, title string, lengths []int, bins int) error {
	vals := make(plotter.Values, len(lengths))
	for i, l := range lengths {
		vals[i] = float64(l)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "length"
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(outDir, name))
}
