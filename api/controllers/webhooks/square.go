package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mesaops/venue-backend/api/responses"
	"github.com/mesaops/venue-backend/internal/ledger"
	"github.com/mesaops/venue-backend/internal/reconciler"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

type squareClient interface {
	SigningSecret() string
}

type squareEnvelope struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// SquareWebhook receives Square payment events. The contract with Square is
// durability, not processing: once the event is in the ledger we return 200,
// and any processing failure is left for the sweeper to re-drive.
func SquareWebhook(events ledger.Service, processor reconciler.Service, client squareClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if events == nil || processor == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "square client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Square-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "square signature missing"))
			return
		}
		if !validateSquareSignature(payload, client.SigningSecret(), sigHeader) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "invalid square signature"))
			return
		}

		var envelope squareEnvelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}
		eventID := strings.TrimSpace(envelope.EventID)
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id missing"))
			return
		}

		event, inserted, err := events.Record(ctx, ledger.RecordEventInput{
			ExternalID: eventID,
			Type:       envelope.Type,
			Payload:    envelope.Data,
		})
		if err != nil {
			// Not recorded; an error status makes Square redeliver.
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if inserted {
			if _, err := processor.Process(ctx, event.ID); err != nil && logg != nil {
				logg.Error(ctx, fmt.Sprintf("square event %s deferred to sweep", eventID), err)
			}
		} else if logg != nil {
			logg.Info(ctx, fmt.Sprintf("square event %s already recorded", eventID))
		}
		responses.WriteSuccess(w, nil)
	}
}

func validateSquareSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
