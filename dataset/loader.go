package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Record lines can carry whole web pages worth of tokens, so the scanner
// buffer is sized well past the bufio default.
const maxLineBytes = 16 * 1024 * 1024

// badcaseSink appends rejected training records to a line-delimited JSON
// log. Writes go straight to the file descriptor, one full line per call,
// so a crash mid-load leaves a valid log behind.
type badcaseSink struct {
	f *os.File
}

func openBadcaseSink(path string) (*badcaseSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open badcase sample log %s: %w", path, err)
	}
	return &badcaseSink{f: f}, nil
}

// dump writes one rejected record, ErrorInfo included, as a single JSON
// line. Non-ASCII text is preserved as UTF-8.
func (s *badcaseSink) dump(rec *Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize badcase sample: %w", err)
	}
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write badcase sample: %w", err)
	}
	return nil
}

func (s *badcaseSink) Close() error {
	return s.f.Close()
}

// loadFile reads one line-delimited JSON record file. Lines without a '{'
// are skipped as non-data; lines that fail to parse are a fatal error.
// When train is true, records are quality-filtered and rejects are dumped
// to the badcase sink, which is opened for this call only and always
// closed. Returns the accepted records and the rejected count.
func (d *Dataset) loadFile(path string, train bool) ([]*Record, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	var sink *badcaseSink
	if train {
		sink, err = openBadcaseSink(d.badcasePath)
		if err != nil {
			return nil, 0, err
		}
		defer sink.Close()
	}

	var records []*Record
	rejected := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.Contains(line, "{") {
			continue
		}

		rec := &Record{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), rec); err != nil {
			return nil, 0, fmt.Errorf("malformed record at %s:%d: %w", path, lineNo, err)
		}

		if train {
			reason, err := filterTrainRecord(rec)
			if err != nil {
				return nil, 0, fmt.Errorf("malformed record at %s:%d: %w", path, lineNo, err)
			}
			if reason != "" {
				rec.ErrorInfo = reason
				rejected++
				if err := sink.dump(rec); err != nil {
					return nil, 0, err
				}
				continue
			}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return records, rejected, nil
}

// filterTrainRecord applies the training-time quality rules in order and
// returns the rejection reason, or "" when the record is accepted. On
// acceptance the four parallel answer slices are replaced by versions with
// every unresolved (-1, -1) answer removed, relative order preserved. A
// record whose answer annotation slices disagree in length is malformed
// beyond filtering and reported as an error.
func filterTrainRecord(rec *Record) (string, error) {
	if len(rec.SegmentedQuestion) == 0 || len(rec.Documents) == 0 {
		return "empty_question", nil
	}
	if len(rec.FakeAnswers) == 0 {
		return "empty_fake_answer", nil
	}

	n := len(rec.AnswerLabels)
	if len(rec.BestMatchDocIDs) != n || len(rec.BestMatchScores) != n || len(rec.FakeAnswers) != n {
		return "", fmt.Errorf("answer annotations not parallel: %d labels, %d doc ids, %d scores, %d fake answers",
			n, len(rec.BestMatchDocIDs), len(rec.BestMatchScores), len(rec.FakeAnswers))
	}

	docIDs := make([]int, 0, len(rec.AnswerLabels))
	scores := make([]float64, 0, len(rec.AnswerLabels))
	labels := make([]Span, 0, len(rec.AnswerLabels))
	fakes := make([]string, 0, len(rec.AnswerLabels))
	for i, span := range rec.AnswerLabels {
		if span.Unresolved() {
			continue
		}
		docIDs = append(docIDs, rec.BestMatchDocIDs[i])
		scores = append(scores, rec.BestMatchScores[i])
		labels = append(labels, span)
		fakes = append(fakes, rec.FakeAnswers[i])
	}
	if len(docIDs) == 0 {
		return "empty_fake_answer", nil
	}

	rec.BestMatchDocIDs = docIDs
	rec.BestMatchScores = scores
	rec.AnswerLabels = labels
	rec.FakeAnswers = fakes
	return "", nil
}
