package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type parameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// loadLineSecrets fills LINE credentials that are not set in the environment
// from SSM Parameter Store, under cfg.SSMParameterPrefix.
func loadLineSecrets(ctx context.Context, client parameterGetter, cfg *Config) error {
	for _, s := range cfg.lineSecrets() {
		if *s.value != "" {
			continue
		}

		name := cfg.SSMParameterPrefix + s.name
		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("failed to get parameter %q: %w", name, err)
		}
		if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
			return fmt.Errorf("parameter %q is empty", name)
		}

		*s.value = aws.ToString(out.Parameter.Value)
	}

	return nil
}
