package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

// metaMember is the only top-level artifact member left out of the
// checksum.
const metaMember = "meta"

// payloadChecksum returns the checksum a freshly built artifact is written
// with. Each member is encoded the way [json.MarshalIndent] encodes it inside
// the document, so the result equals [documentChecksum] of the written file.
func payloadChecksum(a models.BackupArtifact) (string, error) {
	members := map[string]any{
		"remoteCollections":  a.RemoteCollections,
		"localStoreSnapshot": a.LocalStoreSnapshot,
		"preferences":        a.Preferences,
	}

	doc := make(map[string]json.RawMessage, len(members))
	for name, v := range members {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", name, err)
		}
		doc[name] = raw
	}

	return documentChecksum(doc)
}

// documentChecksum hashes every top-level member but meta, keys sorted,
// names and values byte for byte as they appear in the document. Only
// insignificant whitespace is dropped, so a case-changed or unknown member
// changes the result.
func documentChecksum(doc map[string]json.RawMessage) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	for _, name := range models.SortedKeys(doc) {
		if name == metaMember {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(name)
		if err != nil {
			return "", fmt.Errorf("encode member name: %w", err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err = json.Compact(&buf, doc[name]); err != nil {
			return "", fmt.Errorf("member %s: %w", name, err)
		}
	}

	buf.WriteByte('}')
	return utils.Checksum(buf.Bytes()), nil
}

// decodeJSON decodes with numbers kept as [json.Number] so remote values
// survive a backup byte for byte.
func decodeJSON(content []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after the document")
	}
	return nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

// trimDocument drops leading whitespace and a UTF-8 byte order mark.
func trimDocument(content []byte) []byte {
	return bytes.TrimPrefix(bytes.TrimLeft(content, " \t\r\n"), utf8BOM)
}

// isPlainJSON reports whether content looks like a JSON object rather than
// an encrypted envelope.
func isPlainJSON(content []byte) bool {
	trimmed := trimDocument(content)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// backupFilename names an artifact after its creation date.
func backupFilename(createdAt time.Time, encrypted bool) string {
	name := "spendlytics-backup-" + createdAt.UTC().Format(time.DateOnly)
	if encrypted {
		name += "-encrypted"
	}
	return name + ".json"
}

// majorVersion extracts the major component of a "MAJOR.MINOR.PATCH"
// version.
func majorVersion(version string) (int, error) {
	major, _, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(version), "v"), ".")
	n, err := strconv.Atoi(major)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid version %q", version)
	}
	return n, nil
}
