package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/solindex-labs/solindex/pkg/event"
)

// Well-known program ids used by the instruction-level fallback chains.
const (
	TokenProgramID       = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	MetadataProgramID    = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	SystemProgramID      = "11111111111111111111111111111111"
	CompressionProgramID = "cmtDvXumGCrqC1Age74AVPhSRVXJMd8PJS91L8KbNCK"
	NoopProgramID        = "noopb9bkMVfRPU8AsbpTUg8AQkHtKwMYZiFUjNRtMmV"
)

// lamportsPerSol is the fixed-point scale between the chain's smallest unit
// and one SOL.
const lamportsPerSol = 1_000_000_000

// Description scraping patterns. These are last-resort extractors over the
// provider's free-text summary, e.g. "User minted CoolCat #42 for 1.5 SOL".
var (
	reMintedName   = regexp.MustCompile(`(?i)minted\s+([^#\s]+)`)
	reTokenNumber  = regexp.MustCompile(`#(\d+)`)
	reSymbolBefore = regexp.MustCompile(`(?i)minted\s+([^#\s]+)\s+#\d+`)

	// Opaque instruction payload patterns. Metaplex metadata instructions
	// sometimes carry name/symbol/uri as recognizable byte runs.
	reDataName   = regexp.MustCompile(`(?i)name[^\w]+([a-zA-Z0-9_\s]+)`)
	reDataSymbol = regexp.MustCompile(`(?i)symbol[^\w]+([a-zA-Z0-9_\s]+)`)
	reDataURI    = regexp.MustCompile(`(?i)uri[^\w]+(https?://[^\s"]+)`)
	reAnyURL     = regexp.MustCompile(`(?i)(https?://[^\s"]+)`)
)

// lamportsToSol converts a lamport amount to whole SOL.
func lamportsToSol(lamports int64) float64 {
	if lamports == 0 {
		return 0
	}
	return float64(lamports) / lamportsPerSol
}

// firstNonEmpty returns the first non-empty string, or "".
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// flattenAccounts concatenates the account lists of every instruction. The
// audit fields are deliberately redundant: even when a single instruction
// informs the primary fields, downstream forensics get the full picture.
func flattenAccounts(instrs []event.Instruction) []string {
	out := []string{}
	for _, in := range instrs {
		out = append(out, in.Accounts...)
	}
	return out
}

// flattenInner concatenates the inner-instruction lists of every instruction.
func flattenInner(instrs []event.Instruction) []event.Instruction {
	out := []event.Instruction{}
	for _, in := range instrs {
		out = append(out, in.InnerInstructions...)
	}
	return out
}

// instructionsByProgram returns instructions whose programId matches.
func instructionsByProgram(instrs []event.Instruction, programID string) []event.Instruction {
	var out []event.Instruction
	for _, in := range instrs {
		if in.ProgramID == programID {
			out = append(out, in)
		}
	}
	return out
}

// instructionAt returns the instruction at idx, falling back to the first
// instruction when idx is out of range. Returns false when there are no
// instructions at all. Positional conventions (e.g. "the listing program is
// usually instruction index 2") come from observed marketplace layouts.
func instructionAt(instrs []event.Instruction, idx int) (event.Instruction, bool) {
	if len(instrs) == 0 {
		return event.Instruction{}, false
	}
	if idx >= 0 && idx < len(instrs) {
		return instrs[idx], true
	}
	return instrs[0], true
}

// tokenIdentifier extracts the "#N" token marker from a description, or "".
func tokenIdentifier(description string) string {
	return reTokenNumber.FindString(description)
}

// nameFromDescription scrapes the minted item name out of the free-text
// description. Ordered: explicit name after "minted", then a synthetic
// "Token #N" from the token number.
func nameFromDescription(description string) string {
	if description == "" {
		return ""
	}
	if m := reMintedName.FindStringSubmatch(description); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := reTokenNumber.FindStringSubmatch(description); len(m) > 1 {
		return "Token #" + m[1]
	}
	return ""
}

// symbolFromDescription scrapes the collection word preceding the "#N" token
// marker.
func symbolFromDescription(description string) string {
	if m := reSymbolBefore.FindStringSubmatch(description); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// symbolFromName synthesizes a ticker-style symbol from a display name:
// initials for multi-word names, a truncated uppercase prefix otherwise.
func symbolFromName(name string) string {
	if name == "" {
		return ""
	}
	words := strings.Fields(name)
	if len(words) > 1 {
		var b strings.Builder
		for _, w := range words {
			r, _ := utf8.DecodeRuneInString(w)
			b.WriteRune(r)
		}
		return strings.ToUpper(b.String())
	}
	runes := []rune(name)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return strings.ToUpper(string(runes))
}

// nameFromData scrapes a display name out of an opaque instruction payload.
func nameFromData(data string) string {
	if !strings.Contains(strings.ToLower(data), "name") {
		return ""
	}
	if m := reDataName.FindStringSubmatch(data); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// symbolFromData scrapes a symbol out of an opaque instruction payload.
func symbolFromData(data string) string {
	if !strings.Contains(strings.ToLower(data), "symbol") {
		return ""
	}
	if m := reDataSymbol.FindStringSubmatch(data); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// uriFromData scrapes a metadata URI out of an opaque instruction payload,
// trying the labeled form first and any URL second.
func uriFromData(data string) string {
	if m := reDataURI.FindStringSubmatch(data); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := reAnyURL.FindStringSubmatch(data); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// metaString reads a string field out of an untyped metadata map.
func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// metaNumber reads a numeric field out of an untyped metadata map.
func metaNumber(meta map[string]any, key string) (float64, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// metaBool reads a boolean field out of an untyped metadata map.
func metaBool(meta map[string]any, key string) bool {
	if meta == nil {
		return false
	}
	v, _ := meta[key].(bool)
	return v
}

// mustJSON marshals v to a raw JSON value, substituting the given fallback
// literal on failure or nil input. Normalization never errors; audit
// passthrough degrades to an empty container instead.
func mustJSON(v any, fallback string) json.RawMessage {
	if v == nil {
		return json.RawMessage(fallback)
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		// nil slices and maps marshal to "null"; keep the typed default.
		return json.RawMessage(fallback)
	}
	return b
}

// rawOrNull passes a raw JSON value through, defaulting to the fallback.
func rawOrNull(raw json.RawMessage, fallback string) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(fallback)
	}
	return raw
}
