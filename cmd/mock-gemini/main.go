package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/tutorkit/campus-gateway/internal/mockgemini"
)

func main() {
	addr := defaultString("MOCK_GEMINI_ADDR", ":8090")
	apiKey := defaultString("MOCK_GEMINI_API_KEY", "")
	text := defaultString("MOCK_GEMINI_TEXT", "")
	citations := defaultString("MOCK_GEMINI_CITATIONS", "")

	fs := flag.NewFlagSet("mock-gemini", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&apiKey, "api-key", apiKey, "Require this API key on requests (empty disables the check)")
	fs.StringVar(&text, "text", text, "Canned response text for every model")
	fs.StringVar(&citations, "citations", citations, "Comma-separated grounding citation URLs")
	_ = fs.Parse(os.Args[1:])

	srv := mockgemini.New()
	if apiKey != "" {
		srv.RequireAPIKey(apiKey)
	}
	if text != "" || citations != "" {
		srv.SetDefaultResponse(mockgemini.Response{
			Text:      text,
			Citations: splitCSV(citations),
		})
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-gemini listening on %s\n", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
