package signing

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/eunomia-project/eunomia/core"
)

// signatureFile is the on-disk / OCI-manifest-embedded serialisation of a
// SignedBundle's detached signatures.
type signatureFile struct {
	Signatures []core.Signature `json:"signatures"`
}

// MarshalSignatures serialises sb's signatures into the signature file
// format.
func MarshalSignatures(sb *core.SignedBundle) ([]byte, error) {
	data, err := json.Marshal(signatureFile{Signatures: sb.Signatures})
	if err != nil {
		return nil, errors.Wrap(err, "signing: marshalling signature file")
	}
	return data, nil
}

// UnmarshalSignatures parses the signature file format into a signature
// list, to be attached to a core.Bundle by the caller.
func UnmarshalSignatures(data []byte) ([]core.Signature, error) {
	var sf signatureFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, errors.Wrap(err, "signing: parsing signature file")
	}
	return sf.Signatures, nil
}
