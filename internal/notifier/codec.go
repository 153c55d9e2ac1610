package notifier

import (
	"encoding/base64"

	"github.com/pquerna/ffjson/ffjson"

	"fluidmeter-api-server/internal/api/alert"
)

// EncodeFindings packs findings into a string task argument.
func EncodeFindings(findings []*alert.MeterFindings) (string, error) {
	buf, err := ffjson.Marshal(findings)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func DecodeFindings(data string) ([]*alert.MeterFindings, error) {
	var findings []*alert.MeterFindings

	b64Decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	if err := ffjson.Unmarshal(b64Decoded, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}
