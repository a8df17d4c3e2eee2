package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DarkAutumn/QuestionGrabber/grab"
)

// keywordsFile is the on-disk shape of the options file. Every list is
// matched case-insensitively; entries may reference the channel with the
// $stream placeholder.
//
//	grab: ["question", "?"]
//	highlight: ["@$stream"]
//	ignore_users: ["nightbot"]
//	ignore_text: ["!commands"]
type keywordsFile struct {
	Grab        []string `yaml:"grab"`
	Highlight   []string `yaml:"highlight"`
	IgnoreUsers []string `yaml:"ignore_users"`
	IgnoreText  []string `yaml:"ignore_text"`
}

// LoadKeywords reads the options file and resolves $stream against channel.
// A missing file is not an error: built-in defaults apply (grab "question",
// highlight mentions of the channel), with env overrides GRAB_KEYWORDS,
// HIGHLIGHT_KEYWORDS, IGNORE_USERS, IGNORE_TEXT as comma-separated lists.
func LoadKeywords(path, channel string) (grab.Keywords, error) {
	kw := grab.Keywords{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("options file not found, using defaults", slog.String("path", path))
	case err != nil:
		return kw, fmt.Errorf("read options file %s: %w", path, err)
	default:
		var file keywordsFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return kw, fmt.Errorf("parse options file %s: %w", path, err)
		}
		kw.Grab = replaceStream(file.Grab, channel)
		kw.Highlight = replaceStream(file.Highlight, channel)
		kw.IgnoreUsers = replaceStream(file.IgnoreUsers, channel)
		kw.IgnoreText = replaceStream(file.IgnoreText, channel)
	}

	// Env lists override the file wholesale, list by list.
	if v := envList("GRAB_KEYWORDS"); v != nil {
		kw.Grab = replaceStream(v, channel)
	}
	if v := envList("HIGHLIGHT_KEYWORDS"); v != nil {
		kw.Highlight = replaceStream(v, channel)
	}
	if v := envList("IGNORE_USERS"); v != nil {
		kw.IgnoreUsers = replaceStream(v, channel)
	}
	if v := envList("IGNORE_TEXT"); v != nil {
		kw.IgnoreText = replaceStream(v, channel)
	}

	if len(kw.Grab) == 0 {
		kw.Grab = []string{"question"}
	}
	if len(kw.Highlight) == 0 && channel != "" {
		kw.Highlight = []string{"@" + channel}
	}

	return kw, nil
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func replaceStream(in []string, channel string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ReplaceAll(s, "$stream", channel))
	}
	return out
}
