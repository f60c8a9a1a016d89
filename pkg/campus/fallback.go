package campus

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type fallbackData struct {
	Programs []string   `yaml:"programs"`
	News     []NewsItem `yaml:"news"`
	Subjects []Subject  `yaml:"subjects"`
	Books    []Book     `yaml:"books"`
}

// The embedded dataset is part of the build; failing to parse it is a
// programming error, not a runtime condition.
var loadFallback = sync.OnceValue(func() fallbackData {
	var d fallbackData
	if err := yaml.Unmarshal(fallbackYAML, &d); err != nil {
		panic(fmt.Sprintf("campus: embedded fallback dataset is invalid: %v", err))
	}
	return d
})

// FallbackPrograms returns the substitute program list. The result is a copy;
// callers may mutate it freely.
func FallbackPrograms() []string {
	return slices.Clone(loadFallback().Programs)
}

// FallbackNews returns the substitute news items.
func FallbackNews() []NewsItem {
	return slices.Clone(loadFallback().News)
}

// FallbackSubjects returns the substitute curriculum.
func FallbackSubjects() []Subject {
	return slices.Clone(loadFallback().Subjects)
}

// FallbackBooks returns the substitute reading list.
func FallbackBooks() []Book {
	return slices.Clone(loadFallback().Books)
}
