package serializer

import (
	"encoding/base64"

	"github.com/mr-tron/base58"
)

// Base58Encode encodes byte array to base58 string.
func Base58Encode(input []byte) []byte {
	encode := base58.Encode(input)

	return []byte(encode)
}

// Base58Decode decodes base58 string to byte array.
func Base58Decode(input []byte) ([]byte, error) {
	decode, err := base58.Decode(string(input[:]))
	if err != nil {
		return nil, err
	}

	return decode, nil
}

// Base64Encode encodes byte array to standard base64 string.
// Base64 is the encoding of keys, signatures and hashes inside the QR payloads.
func Base64Encode(input []byte) string {
	return base64.StdEncoding.EncodeToString(input)
}

// Base64Decode decodes standard base64 string to byte array.
func Base64Decode(input string) ([]byte, error) {
	decode, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return nil, err
	}

	return decode, nil
}
