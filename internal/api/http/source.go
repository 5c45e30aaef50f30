package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

var errInvalidSource = errors.New("invalid source file")

// sourceFields are the multipart fields accepted by the upload endpoint
var sourceFields = []string{"markup", "style", "script"}

// Upload holds one decoded source file
type Upload struct {
	Field   string `json:"field"`
	Name    string `json:"name"`
	Charset string `json:"charset"`
	Bytes   int    `json:"bytes"`
}

// DetectCharset names the most likely charset of data
func DetectCharset(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "windows-1252"
	}
	return strings.ToLower(result.Charset)
}

// decodeSource converts an uploaded file to UTF-8 text
func decodeSource(data []byte) (string, string, error) {
	name := DetectCharset(data)
	if name == "utf-8" {
		return string(data), name, nil
	}

	r, err := charset.NewReader(bytes.NewReader(data), "text/plain; charset="+name)
	if err != nil {
		return "", name, fmt.Errorf("%w: unsupported charset %s", errInvalidSource, name)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", name, fmt.Errorf("%w: %v", errInvalidSource, err)
	}
	return string(decoded), name, nil
}

// readSourceFile reads and decodes one multipart file
func readSourceFile(fh *multipart.FileHeader) (string, string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", "", err
	}
	return decodeSource(data)
}
