/**
 * Copyright 2025-present Presale Ledger Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reconciler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"presale-ledger-go/internal/store"

	"go.uber.org/zap"
)

// SignatureVerifier authenticates webhook deliveries: HMAC-SHA256 over
// timestamp || rawBody with the provider's shared secret, base64-encoded,
// compared in constant time.
type SignatureVerifier struct {
	secret   []byte
	insecure bool
}

// NewSignatureVerifier requires a secret. Running without one must be an
// explicit opt-in; a missing secret silently accepting every delivery is
// exactly the failure mode this constructor exists to prevent.
func NewSignatureVerifier(secret string, insecureSkipVerify bool) (*SignatureVerifier, error) {
	if secret == "" {
		if !insecureSkipVerify {
			return nil, fmt.Errorf("webhook secret is empty; set one or opt in to insecure-skip-verify explicitly")
		}
		zap.L().Warn("Webhook signature verification DISABLED; every delivery will be accepted")
		return &SignatureVerifier{insecure: true}, nil
	}
	return &SignatureVerifier{secret: []byte(secret)}, nil
}

// Verify checks the signature header against the raw request body. It returns
// store.ErrUnauthorized on any mismatch so callers can reject before touching
// state.
func (v *SignatureVerifier) Verify(body []byte, signature, timestamp string) error {
	if v.insecure {
		return nil
	}
	if signature == "" {
		return fmt.Errorf("%w: missing signature header", store.ErrUnauthorized)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("%w: signature mismatch", store.ErrUnauthorized)
	}
	return nil
}
