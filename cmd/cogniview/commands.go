package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/cogniview/schema"
	"github.com/spektr-org/cogniview/session"
	"github.com/spektr-org/cogniview/translator"
)

// ============================================================================
// DATASET COMMANDS
// ============================================================================

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Print the schema derived from a CSV file",
	Example: `  cogniview discover -f students.csv --format text
  cogniview discover -f students.csv --format pretty -o schema.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sch, err := discoverSchema()
		if err != nil {
			return err
		}
		return withOutput(func(w io.Writer) error { return writeSchema(w, sch, format) })
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the first rows of a CSV file as parsed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := loadFrame()
		if err != nil {
			return err
		}
		s, err := newSession(nil, frame)
		if err != nil {
			return err
		}
		res, err := s.Preview()
		if err != nil {
			return err
		}
		return withOutput(func(w io.Writer) error { return writeResult(w, res, format) })
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "List starter questions for a CSV file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sch, err := discoverSchema()
		if err != nil {
			return err
		}
		questions := translator.Suggest(sch)
		return withOutput(func(w io.Writer) error { return writeList(w, "question", questions, format) })
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema snapshot commands",
}

var schemaSaveCmd = &cobra.Command{
	Use:   "save <path>",
	Short: "Save the derived schema as YAML (or JSON for .json paths)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sch, err := discoverSchema()
		if err != nil {
			return err
		}
		if err := sch.Save(args[0]); err != nil {
			return err
		}
		logger.Info("schema saved", zap.String("path", args[0]), zap.Int("columns", sch.Cols))
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print a saved schema snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sch, err := schema.Load(args[0])
		if err != nil {
			return err
		}
		return withOutput(func(w io.Writer) error { return writeSchema(w, sch, format) })
	},
}

func init() {
	schemaCmd.AddCommand(schemaSaveCmd, schemaShowCmd)
}

func discoverSchema() (*schema.Schema, error) {
	frame, err := loadFrame()
	if err != nil {
		return nil, err
	}
	sch, err := schema.FromFrame(frame, cfg.Schema.SampleRows)
	if err != nil {
		return nil, fmt.Errorf("schema discovery failed: %w", err)
	}
	return sch, nil
}

// ============================================================================
// QUESTION COMMANDS
// ============================================================================

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question about a CSV file",
	Example: `  cogniview ask -f students.csv "What is the average math score?" --format text
  cogniview ask -f students.csv "Which gender has the highest reading score?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := loadFrame()
		if err != nil {
			return err
		}
		c, err := newCompleter(cmd.Context())
		if err != nil {
			return err
		}
		s, err := newSession(c, frame)
		if err != nil {
			return err
		}

		a, err := s.Ask(cmd.Context(), joinArgs(args))
		if err != nil {
			return err
		}
		if err := withOutput(func(w io.Writer) error { return writeAttempt(w, a, format) }); err != nil {
			return err
		}
		if !a.Succeeded() {
			return errAttemptFailed
		}
		return nil
	},
}

var (
	questionsPath string
	concurrency   int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Answer a file of questions, one per line, concurrently",
	Long: `Each question runs in its own session over the same dataset. Blank
lines and lines starting with # are skipped. Answers are printed in input
order.`,
	Example: `  cogniview batch -f students.csv --questions questions.txt --concurrency 4 --format text`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, err := readQuestions(questionsPath)
		if err != nil {
			return err
		}
		frame, err := loadFrame()
		if err != nil {
			return err
		}
		c, err := newCompleter(cmd.Context())
		if err != nil {
			return err
		}

		attempts, err := answerAll(cmd.Context(), questions, concurrency, func() (*session.Session, error) {
			return newSession(c, frame)
		})
		if err != nil {
			return err
		}

		if err := withOutput(func(w io.Writer) error { return writeAttempts(w, attempts, format) }); err != nil {
			return err
		}
		for _, a := range attempts {
			if !a.Succeeded() {
				return errAttemptFailed
			}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&questionsPath, "questions", "q", "", "File with one question per line (- for stdin)")
	batchCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Questions answered at once")
	_ = batchCmd.MarkFlagRequired("questions")
}

// answerAll asks each question in its own session, at most concurrency at
// a time. The first failure cancels every attempt still in flight.
func answerAll(ctx context.Context, questions []string, concurrency int, open func() (*session.Session, error)) ([]*session.Attempt, error) {
	store := session.NewStore()
	attempts := make([]*session.Attempt, len(questions))

	var failed atomic.Bool

	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	for i, q := range questions {
		g.Go(func() error {
			err := func() error {
				s, err := open()
				if err != nil {
					return err
				}
				id := store.Add(s)
				defer store.Remove(id)
				if failed.Load() {
					return nil
				}

				a, err := s.Ask(ctx, q)
				if err != nil {
					return err
				}
				attempts[i] = a
				return nil
			}()
			if err != nil {
				failed.Store(true)
				store.CancelAll()
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attempts, nil
}

func readQuestions(path string) ([]string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no questions found")
	}
	return out, nil
}
