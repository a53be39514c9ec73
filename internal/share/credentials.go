package share

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// Default Parameter Store names for the Instagram credentials.
const (
	DefaultTokenParam  = "/civic-certificate/prod/instagram-access-token"
	DefaultUserIDParam = "/civic-certificate/prod/instagram-user-id"
)

// ParameterGetter is the subset of the SSM client used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// InstagramCredentials identify the publishing account.
type InstagramCredentials struct {
	AccessToken string
	UserID      string
}

// LoadInstagramCredentials reads INSTAGRAM_ACCESS_TOKEN and
// INSTAGRAM_USER_ID, falling back to Parameter Store for whichever is
// unset. The token is stored as a SecureString.
func LoadInstagramCredentials(ctx context.Context, params ParameterGetter, tokenParam, userIDParam string) (InstagramCredentials, error) {
	creds := InstagramCredentials{
		AccessToken: os.Getenv("INSTAGRAM_ACCESS_TOKEN"),
		UserID:      os.Getenv("INSTAGRAM_USER_ID"),
	}
	if creds.AccessToken != "" && creds.UserID != "" {
		return creds, nil
	}
	if params == nil {
		return creds, fmt.Errorf("instagram credentials not set and no parameter store configured")
	}

	if tokenParam == "" {
		tokenParam = DefaultTokenParam
	}
	if userIDParam == "" {
		userIDParam = DefaultUserIDParam
	}

	if creds.AccessToken == "" {
		v, err := getParameter(ctx, params, tokenParam, true)
		if err != nil {
			return creds, err
		}
		creds.AccessToken = v
	}
	if creds.UserID == "" {
		v, err := getParameter(ctx, params, userIDParam, false)
		if err != nil {
			return creds, err
		}
		creds.UserID = v
	}
	return creds, nil
}

func getParameter(ctx context.Context, params ParameterGetter, name string, decrypt bool) (string, error) {
	start := time.Now()
	out, err := params.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(decrypt),
	})
	if err != nil {
		return "", fmt.Errorf("read parameter %s: %w", name, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("parameter %s is empty", name)
	}
	log.Debug().Str("param", name).Dur("elapsed", time.Since(start)).Msg("Parameter loaded from SSM")
	return aws.ToString(out.Parameter.Value), nil
}
