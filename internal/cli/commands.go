package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/terraincognita07/lifelog/internal/security"
	"github.com/terraincognita07/lifelog/internal/services"
)

// CodeReader returns the login code typed by the operator.
type CodeReader func() (string, error)

// RunIssueCodeCommand issues a login code and prints it instead of relying
// on email delivery. The AuthService should be built without a sender.
func RunIssueCodeCommand(ctx context.Context, auth *services.AuthService, email string, out io.Writer) error {
	issued, err := auth.IssueChallenge(ctx, email, "")
	if err != nil {
		return fmt.Errorf("issue login code: %w", err)
	}

	fmt.Fprintf(out, "Login code for %s: %s\n", issued.Email, issued.Code)
	fmt.Fprintf(out, "Expires at %s\n", issued.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

// RunTokenCommand runs the login flow from a terminal: a code is delivered
// through auth's sender, read back with readCode and exchanged for a bearer
// token that is printed to out.
func RunTokenCommand(ctx context.Context, auth *services.AuthService, email string, secretKey string, ttl time.Duration, readCode CodeReader, out io.Writer) error {
	issued, err := auth.IssueChallenge(ctx, email, "")
	if err != nil {
		return fmt.Errorf("issue login code: %w", err)
	}
	fmt.Fprintf(out, "A login code was sent to %s\n", issued.Email)

	code, err := readCode()
	if err != nil {
		return fmt.Errorf("read login code: %w", err)
	}

	user, err := auth.VerifyChallenge(ctx, issued.Email, code)
	if err != nil {
		return fmt.Errorf("verify login code: %w", err)
	}

	token, expiresAt, err := security.IssueAccessToken([]byte(secretKey), user.ID, ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "Expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}
