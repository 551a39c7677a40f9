package ports

import (
	"context"
	"io"

	"github.com/devbush/poser/internal/domain"
)

// TokenResponse is returned by a successful code verification
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UploadRequest describes a video submission
type UploadRequest struct {
	Path            string
	Filename        string
	DurationSeconds float64
	Trim            *domain.TrimRange // nil submits the whole video
}

// PoserAPI is the analysis backend
type PoserAPI interface {
	// Authentication

	// RequestCode asks the backend to email a verification code.
	RequestCode(ctx context.Context, email string) error

	// VerifyCode exchanges an emailed code for an access token.
	VerifyCode(ctx context.Context, email, code string) (*TokenResponse, error)

	// Analyses

	// UploadVideo submits a video and returns the new analysis id.
	UploadVideo(ctx context.Context, req UploadRequest) (string, error)

	// GetProgress returns the latest progress snapshot of an analysis.
	GetProgress(ctx context.Context, id string) (*domain.Progress, error)

	// GetAnalysis returns the full analysis record.
	GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error)

	// ListAnalyses returns the user's past analyses.
	ListAnalyses(ctx context.Context) ([]domain.AnalysisSummary, error)

	// DeleteAnalysis removes an analysis on the backend.
	DeleteAnalysis(ctx context.Context, id string) error

	// ConfirmEmail redeems the token from an emailed confirmation link,
	// releasing an analysis that is awaiting confirmation.
	ConfirmEmail(ctx context.Context, token string) error

	// Artifacts

	// ArtifactURL builds the direct download URL of an artifact.
	ArtifactURL(id string, artifact domain.Artifact) string

	// DownloadArtifact streams an artifact into w.
	DownloadArtifact(ctx context.Context, id string, artifact domain.Artifact, w io.Writer) (int64, error)

	// Support

	// SubmitContact sends a support message.
	SubmitContact(ctx context.Context, msg *domain.ContactMessage) error
}

// TokenSource supplies the bearer token attached to API requests
type TokenSource interface {
	Token() string
}
