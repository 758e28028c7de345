package cert

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/ocsp"
)

// OCSP staple errors.
var (
	ErrStapleInvalid = errors.New("invalid OCSP staple")
	ErrStapleRevoked = errors.New("OCSP staple reports certificate revoked")
	ErrStapleUnknown = errors.New("OCSP staple reports certificate status unknown")
	ErrStapleStale   = errors.New("OCSP staple is outdated")
)

// VerifyStaple parses a DER OCSP response for leaf, checks the responder
// signature against issuer and requires a current Good status.
func VerifyStaple(staple []byte, leaf, issuer *x509.Certificate, now time.Time) (*ocsp.Response, error) {
	if leaf == nil || issuer == nil {
		return nil, fmt.Errorf("%w: leaf and issuer required", ErrInvalidCert)
	}

	resp, err := ocsp.ParseResponseForCert(staple, leaf, issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStapleInvalid, err)
	}

	switch resp.Status {
	case ocsp.Good:
	case ocsp.Revoked:
		return nil, ErrStapleRevoked
	default:
		return nil, ErrStapleUnknown
	}

	if now.Before(resp.ThisUpdate) {
		return nil, fmt.Errorf("%w: this update %s is in the future", ErrStapleStale, resp.ThisUpdate)
	}
	if !resp.NextUpdate.IsZero() && now.After(resp.NextUpdate) {
		return nil, fmt.Errorf("%w: next update was %s", ErrStapleStale, resp.NextUpdate)
	}
	return resp, nil
}
