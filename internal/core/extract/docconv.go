package extract

import (
	"bytes"

	"code.sajari.com/docconv"
)

// docconvConvert is the production converter, backed by sajari/docconv.
func docconvConvert(data []byte, mimeType string) (string, map[string]string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", nil, err
	}
	return res.Body, res.Meta, nil
}
