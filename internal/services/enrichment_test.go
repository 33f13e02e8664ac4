package services

import (
	"context"
	"errors"
	"testing"
)

func TestParseSentiment(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.8", 0.8, false},
		{"The sentiment is 0.25.", 0.25, false},
		{"1.0", 1.0, false},
		{"0", 0, false},
		{"no number here", 0, true},
	}
	for _, tc := range cases {
		got, err := parseSentiment(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseSentiment(%q) expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSentiment(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseSentiment(%q) = %v, expected %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTopics(t *testing.T) {
	topics := parseTopics("Service, PRICE, flying saucers, service")
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %v", topics)
	}
	if topics[0] != "service" || topics[1] != "price" {
		t.Errorf("topics = %v, expected [service price]", topics)
	}

	if got := parseTopics("none"); len(got) != 0 {
		t.Errorf("expected no topics for 'none', got %v", got)
	}
}

type failingEnricher struct{}

func (failingEnricher) ScoreSentiment(context.Context, string) (float64, error) {
	return 0, errors.New("connection refused")
}

func (failingEnricher) ExtractTopics(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

func (failingEnricher) Transcribe(context.Context, []byte, string) (string, error) {
	return "", errors.New("connection refused")
}

func TestSafeEnricher_FailsOpen(t *testing.T) {
	safe := NewSafeEnricher(failingEnricher{})
	ctx := context.Background()

	if score := safe.ScoreSentiment(ctx, "great place"); score != neutralSentiment {
		t.Errorf("score = %v, expected neutral %v on failure", score, neutralSentiment)
	}
	if topics := safe.ExtractTopics(ctx, "great place"); len(topics) != 0 {
		t.Errorf("topics = %v, expected none on failure", topics)
	}
	// Transcription keeps failing loudly: the worker owns the retry.
	if _, err := safe.Transcribe(ctx, []byte("audio"), "a.mp3"); err == nil {
		t.Error("transcription failure should propagate")
	}
}

func TestSafeEnricher_EmptyTextShortCircuits(t *testing.T) {
	safe := NewSafeEnricher(failingEnricher{})
	ctx := context.Background()

	if score := safe.ScoreSentiment(ctx, ""); score != neutralSentiment {
		t.Errorf("score = %v, expected neutral for empty text", score)
	}
	if topics := safe.ExtractTopics(ctx, ""); topics != nil {
		t.Errorf("topics = %v, expected nil for empty text", topics)
	}
}
