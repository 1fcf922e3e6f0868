// Package adapters bridges the launch-payload verifier into the shape the
// registration service consumes.
package adapters

import (
	"strconv"

	"rollcall/internal/initdata"
	"rollcall/internal/registration/models"
)

// InitDataVerifier adapts initdata.Verifier to the service's ProofVerifier.
type InitDataVerifier struct {
	verifier *initdata.Verifier
}

func NewInitDataVerifier(v *initdata.Verifier) *InitDataVerifier {
	return &InitDataVerifier{verifier: v}
}

func (a *InitDataVerifier) Verify(proof string) (models.Principal, error) {
	user, err := a.verifier.Verify(proof)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{
		ID:          strconv.FormatInt(user.ID, 10),
		DisplayName: models.DisplayName(user.FirstName, user.LastName, user.Username),
	}, nil
}
