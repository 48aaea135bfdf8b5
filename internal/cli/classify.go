package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"CompanionGuard/pkg/crisis"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text...]",
	Short: "Classify messages and print the result as JSON lines",
	Long: `Classify each argument, or each line of stdin when no argument is given,
and print one JSON object per message. Useful for checking a pattern table
before publishing it.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringP("patterns", "p", "", "pattern table file (YAML or JSON); default is the built-in table")
	classifyCmd.Flags().BoolP("respond", "r", false, "include the crisis response text")
}

type classifyLine struct {
	Text     string `json:"text"`
	Severity string `json:"severity"`
	Category string `json:"category,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Version  string `json:"version"`
	Response string `json:"response,omitempty"`
}

func loadClassifier(path string) (*crisis.Classifier, error) {
	if path == "" {
		return crisis.DefaultClassifier(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	table, err := crisis.ParsePatternTable(data)
	if err != nil {
		return nil, err
	}
	return crisis.NewClassifier(table)
}

func runClassify(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("patterns")
	respond, _ := cmd.Flags().GetBool("respond")
	classifier, err := loadClassifier(path)
	if err != nil {
		return fmt.Errorf("loading patterns: %w", err)
	}

	texts := args
	if len(texts) == 0 {
		texts, err = readLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, text := range texts {
		r := classifier.Classify(text)
		line := classifyLine{
			Text:     text,
			Severity: r.Severity.String(),
			Category: string(r.MatchedCategory),
			Pattern:  r.Pattern,
			Version:  r.TableVersion,
		}
		if respond {
			line.Response = crisis.Respond(r.Severity)
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}
