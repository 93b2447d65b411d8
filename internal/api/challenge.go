package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/sealwrite/sealwrite/pkg/audit"
	"github.com/sealwrite/sealwrite/pkg/challenge"
	"github.com/sealwrite/sealwrite/pkg/proposal"
	"github.com/sealwrite/sealwrite/pkg/protocol"
)

// maxBodySize caps request bodies. Proposal content rides in the body, so
// this is also the effective content size limit.
const maxBodySize = 4 << 20

// decodeBody decodes a JSON request body with a size cap.
func decodeBody(r *http.Request, out any) error {
	defer io.Copy(io.Discard, r.Body)
	return json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(out)
}

// handleChallenge handles GET /api/v1/challenge. Every call mints a fresh
// single-use nonce bound to the exact (path, contentDigest, tier) triple.
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	digest := q.Get("contentDigest")
	tierParam := q.Get("tier")

	if path == "" || digest == "" {
		writeError(w, http.StatusBadRequest, "path and contentDigest are required")
		return
	}
	if _, err := proposal.ParseDigest(digest); err != nil {
		writeError(w, http.StatusBadRequest, "contentDigest is not a valid content id")
		return
	}
	tier, err := strconv.Atoi(tierParam)
	if err != nil || !proposal.Tier(tier).Valid() {
		writeError(w, http.StatusBadRequest, "tier must be a supported tier number")
		return
	}

	ch, err := s.challenges.Issue(challenge.PurposeProposal, path, digest, tier)
	if err != nil {
		s.writeProtocolError(w, err)
		return
	}

	s.audit.Emit(audit.Event{
		Type:   audit.EventChallengeIssued,
		Target: ch.ID,
	})

	writeJSON(w, http.StatusOK, protocol.ChallengeResponse{
		ChallengeID: ch.ID,
		Nonce:       base64.StdEncoding.EncodeToString(ch.Nonce),
		ExpiresAt:   ch.ExpiresAt,
	})
}
