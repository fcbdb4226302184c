package contact

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// attachmentTypes maps accepted attachment MIME types to their extensions.
var attachmentTypes = map[string][]string{
	"application/pdf":    {".pdf"},
	"application/msword": {".doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
	"image/png":  {".png"},
	"image/jpeg": {".jpg", ".jpeg"},
	"text/plain": {".txt"},
}

// voiceTypes maps accepted voice note MIME types to a default extension.
// Browsers often name recordings "blob", so the name is not checked.
var voiceTypes = map[string]string{
	"audio/webm": ".webm",
	"audio/ogg":  ".ogg",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/mp4":  ".m4a",
}

// voiceAliases normalizes legacy MIME names.
var voiceAliases = map[string]string{
	"audio/x-wav":     "audio/wav",
	"audio/wave":      "audio/wav",
	"audio/mp3":       "audio/mpeg",
	"audio/x-m4a":     "audio/mp4",
	"video/webm":      "audio/webm",
	"application/ogg": "audio/ogg",
}

// mediaType strips parameters from a Content-Type value.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// validAttachment checks the declared type, the extension and the content
// of an attachment.
func validAttachment(name, contentType string, data []byte) bool {
	mt := mediaType(contentType)
	exts, ok := attachmentTypes[mt]
	if !ok {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	found := false
	for _, e := range exts {
		if e == ext {
			found = true
			break
		}
	}
	return found && validateMagicBytes(data, mt)
}

// normalizeVoiceType returns the canonical voice MIME type, or "" when the
// type is not accepted.
func normalizeVoiceType(contentType string) string {
	mt := mediaType(contentType)
	if alias, ok := voiceAliases[mt]; ok {
		mt = alias
	}
	if _, ok := voiceTypes[mt]; !ok {
		return ""
	}
	return mt
}

// validateMagicBytes checks that the content matches the declared MIME
// type, so a renamed executable cannot pass as a PDF.
func validateMagicBytes(data []byte, mt string) bool {
	if len(data) < 4 {
		return mt == "text/plain" && len(data) > 0 && utf8.Valid(data)
	}
	switch mt {
	case "application/pdf":
		return bytes.HasPrefix(data, []byte("%PDF-"))
	case "application/msword":
		// OLE2 compound document.
		return bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return bytes.HasPrefix(data, []byte("PK\x03\x04"))
	case "image/png":
		return bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	case "image/jpeg":
		return data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "text/plain":
		return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
	case "audio/webm":
		return bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3})
	case "audio/ogg":
		return bytes.HasPrefix(data, []byte("OggS"))
	case "audio/mpeg":
		return bytes.HasPrefix(data, []byte("ID3")) || (data[0] == 0xFF && data[1]&0xE0 == 0xE0)
	case "audio/wav":
		return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE"
	case "audio/mp4":
		return len(data) >= 8 && string(data[4:8]) == "ftyp"
	default:
		return false
	}
}
