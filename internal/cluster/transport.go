package cluster

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// SigningService is the SigV4 service name of Amazon-managed search domains.
const SigningService = "es"

// contentSHA256Header carries the payload hash; managed domains reject signed
// requests with a body unless it is present.
const contentSHA256Header = "X-Amz-Content-Sha256"

// SigV4Transport signs cluster requests for an Amazon-managed search domain.
type SigV4Transport struct {
	next    http.RoundTripper
	creds   aws.CredentialsProvider
	region  string
	service string
	signer  *v4.Signer
	now     func() time.Time
}

// NewSigV4Transport wraps next so every request is signed for region.
func NewSigV4Transport(next http.RoundTripper, creds aws.CredentialsProvider, region string) *SigV4Transport {
	return &SigV4Transport{
		next:    next,
		creds:   creds,
		region:  region,
		service: SigningService,
		signer:  v4.NewSigner(),
		now:     time.Now,
	}
}

// RoundTrip implements http.RoundTripper. The caller's request is not
// modified; a signed clone is sent instead.
func (t *SigV4Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	signed := req.Clone(req.Context())

	hash, err := hashPayload(signed)
	if err != nil {
		return nil, fmt.Errorf("sigv4: read body: %w", err)
	}
	signed.Header.Set(contentSHA256Header, hash)

	creds, err := t.creds.Retrieve(signed.Context())
	if err != nil {
		return nil, fmt.Errorf("sigv4: retrieve credentials: %w", err)
	}
	if err := t.signer.SignHTTP(signed.Context(), creds, signed, hash, t.service, t.region, t.now()); err != nil {
		return nil, fmt.Errorf("sigv4: sign: %w", err)
	}

	return t.next.RoundTrip(signed)
}

// hashPayload returns the hex SHA-256 of req's body and leaves req with a
// body that can still be sent. GetBody is preferred so the original reader
// is not drained.
func hashPayload(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return emptyPayloadHash, nil
	}

	body := req.Body
	if req.GetBody != nil {
		var err error
		if body, err = req.GetBody(); err != nil {
			return "", err
		}
	}
	payload, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return "", err
	}

	req.Body = io.NopCloser(bytes.NewReader(payload))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}
	req.ContentLength = int64(len(payload))

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

var emptyPayloadHash = func() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}()
