package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"
)

const maxBodyBytes = 64 << 10

// sanitizeInput removes control characters except tab, newline and carriage
// return. Surrounding whitespace is kept; validation trims names itself.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseDraft reads the name and amount fields of the new entry row.
func parseDraft(w http.ResponseWriter, r *http.Request) (ledger.Draft, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return ledger.Draft{}, fmt.Errorf("parse form: %w", err)
	}
	return ledger.Draft{
		Name:   sanitizeInput(r.PostForm.Get("name")),
		Amount: strings.TrimSpace(r.PostForm.Get("amount")),
	}, nil
}

// parseKey reads a key event, sent either as JSON or as form values.
func parseKey(w http.ResponseWriter, r *http.Request) (ledger.Key, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var k ledger.Key
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&k); err != nil {
			return ledger.Key{}, fmt.Errorf("decode key: %w", err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return ledger.Key{}, fmt.Errorf("parse form: %w", err)
		}
		k = ledger.Key{
			Name:  r.PostForm.Get("key"),
			Shift: formBool(r.PostForm.Get("shiftKey")),
			Alt:   formBool(r.PostForm.Get("altKey")),
			Ctrl:  formBool(r.PostForm.Get("ctrlKey")),
			Meta:  formBool(r.PostForm.Get("metaKey")),
		}
	}
	if k.Name == "" {
		return ledger.Key{}, errors.New("missing key")
	}
	return k, nil
}

func formBool(v string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

// entryRequest is the JSON body of POST /api/entries. Amount may be a number
// or a string such as "1 200,50" or "1200+300".
type entryRequest struct {
	Name   string          `json:"name"`
	Amount json.RawMessage `json:"amount"`
}

func decodeEntryRequest(w http.ResponseWriter, r *http.Request) (core.Candidate, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req entryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return core.Candidate{}, fmt.Errorf("decode entry: %w", err)
	}
	return core.Candidate{
		Name:   sanitizeInput(req.Name),
		Amount: rawAmount(req.Amount),
	}, nil
}

func rawAmount(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return core.ParseAmount(s)
	}
	return math.NaN()
}
