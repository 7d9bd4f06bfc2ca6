// Package podcast rewrites video analyses as narration scripts and merges
// them into one text artifact ready for speech synthesis.
package podcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"echoframe-go/internal/llm"
	"echoframe-go/internal/store"
)

const (
	MergedName   = "full_podcast.txt"
	mergedHeader = "Full Podcast Episode\n\n"
	separator    = "\n\n---\n\n"

	DefaultTemperature = 0.7
)

const systemPrompt = "You are a scriptwriter for podcasts. Your job is to take structured data and generate a spoken-style narrative, " +
	"suitable for a podcast episode, under 10000 characters. Use natural, engaging language."

const userPromptTemplate = `Below is structured video content, including transcription and visual descriptions.

Please generate a podcast-style script narrating the content, combining what is said and what is seen into a coherent, spoken narration.

Use an engaging tone, introduce the topic, and guide the listener through the visuals and speech as if they're hearing a podcast.

Respond only with the podcast script.

%s
`

// ErrNoEpisodes means no input file produced a script.
var ErrNoEpisodes = errors.New("no podcast episodes generated")

type Episode struct {
	Source string `json:"source"`
	Path   string `json:"path"`
	Script string `json:"-"`
}

type Result struct {
	Episodes   []Episode `json:"episodes"`
	Failed     []string  `json:"failed,omitempty"`
	MergedPath string    `json:"merged_path"`
	Merged     string    `json:"-"`
}

type Writer struct {
	LLM         llm.Completer
	Model       string
	Temperature float32
	Out         *store.Store
	Log         *logrus.Entry
}

func NewWriter(c llm.Completer, model string, out *store.Store, log *logrus.Entry) *Writer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Writer{
		LLM:         c,
		Model:       model,
		Temperature: DefaultTemperature,
		Out:         out,
		Log:         log.WithField("component", "podcast"),
	}
}

// Script asks the model to narrate one analysis document.
func (w *Writer) Script(ctx context.Context, data json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("input is not JSON: %w", err)
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")

	resp, err := w.LLM.Complete(ctx, llm.Request{
		Model:       w.Model,
		System:      systemPrompt,
		User:        fmt.Sprintf(userPromptTemplate, pretty),
		Temperature: llm.Temp(w.Temperature),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// Run narrates every *.json file in dir (sorted by name, final.json skipped),
// writes one <name>.txt per episode and the merged file. A file that fails is
// logged and left out.
func (w *Writer) Run(ctx context.Context, dir string) (*Result, error) {
	files, err := inputFiles(dir)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log := w.Log.WithField("file", name)
		log.Info("processing")

		ep, err := w.episode(ctx, dir, name)
		if err != nil {
			log.WithError(err).Error("episode failed")
			res.Failed = append(res.Failed, name)
			continue
		}
		res.Episodes = append(res.Episodes, ep)
	}

	if len(res.Episodes) == 0 {
		return res, ErrNoEpisodes
	}
	res.Merged = Merge(res.Episodes)
	res.MergedPath, err = w.Out.WriteText(ctx, MergedName, res.Merged)
	if err != nil {
		return res, err
	}
	w.Log.WithFields(logrus.Fields{"episodes": len(res.Episodes), "failed": len(res.Failed)}).Info("merged podcast saved")
	return res, nil
}

func (w *Writer) episode(ctx context.Context, dir, name string) (Episode, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return Episode{}, err
	}
	script, err := w.Script(ctx, data)
	if err != nil {
		return Episode{}, err
	}
	path, err := w.Out.WriteText(ctx, strings.TrimSuffix(name, ".json")+".txt", script)
	if err != nil {
		return Episode{}, err
	}
	return Episode{Source: name, Path: path, Script: script}, nil
}

// Merge joins episodes under the podcast header, each introduced by its source file.
func Merge(episodes []Episode) string {
	parts := make([]string, len(episodes))
	for i, e := range episodes {
		parts[i] = fmt.Sprintf("\nEpisode based on %s:\n\n%s", e.Source, e.Script)
	}
	return mergedHeader + strings.Join(parts, separator)
}

func inputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name() == store.FinalName {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}
