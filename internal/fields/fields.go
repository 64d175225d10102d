package fields

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FieldData is the payload of the overlay load-configuration event. Keys
// match the widget field names configured by the streamer.
type FieldData struct {
	SessionSummary   string `json:"sessionSummary" mapstructure:"sessionSummary"`
	Tier1Threshold   int    `json:"tier1Threshold" mapstructure:"tier1Threshold"`
	Tier2Threshold   int    `json:"tier2Threshold" mapstructure:"tier2Threshold"`
	Tier3Threshold   int    `json:"tier3Threshold" mapstructure:"tier3Threshold"`
	ViewerTaskLimit  int    `json:"viewerTaskLimit" mapstructure:"viewerTaskLimit"`
	BackgroundColor  string `json:"backgroundColor" mapstructure:"backgroundColor"`
	TextColor        string `json:"textColor" mapstructure:"textColor"`
	ProgressBarColor string `json:"progressBarColor" mapstructure:"progressBarColor"`
	Theme            string `json:"theme" mapstructure:"theme"`
	StreamerTask1    string `json:"streamerTask1" mapstructure:"streamerTask1"`
	StreamerTask2    string `json:"streamerTask2" mapstructure:"streamerTask2"`
	StreamerTask3    string `json:"streamerTask3" mapstructure:"streamerTask3"`
	StreamerTask4    string `json:"streamerTask4" mapstructure:"streamerTask4"`
	StreamerTask5    string `json:"streamerTask5" mapstructure:"streamerTask5"`
}

// StreamerTasks returns the non-blank streamerTask1..5 values in order.
func (f FieldData) StreamerTasks() []string {
	raw := []string{f.StreamerTask1, f.StreamerTask2, f.StreamerTask3, f.StreamerTask4, f.StreamerTask5}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Load reads field data from a YAML, TOML or JSON file. An empty path or a
// missing file yields zero field data so that every default applies.
func Load(path string) (FieldData, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return FieldData{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return FieldData{}, nil
		}
		return FieldData{}, fmt.Errorf("reading field data %s: %w", path, err)
	}
	return decode(v, path)
}

// FromMap converts a raw field-data object, as delivered by the overlay host,
// into FieldData. Numeric fields may arrive as numbers or numeric strings.
func FromMap(raw map[string]any) (FieldData, error) {
	v := viper.New()
	if err := v.MergeConfigMap(raw); err != nil {
		return FieldData{}, fmt.Errorf("merging field data: %w", err)
	}
	return decode(v, "event payload")
}

func decode(v *viper.Viper, source string) (FieldData, error) {
	var f FieldData
	if err := v.Unmarshal(&f); err != nil {
		return FieldData{}, fmt.Errorf("parsing field data %s: %w", source, err)
	}
	return f, nil
}
