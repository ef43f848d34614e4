package config

// EmailConfig configures outbound mail.
type EmailConfig struct {
	Provider    string
	FromAddress string
	FromName    string
	AWSRegion   string
}

func loadEmailConfig() EmailConfig {
	return EmailConfig{
		Provider:    getEnv("EMAIL_PROVIDER", "console"),
		FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@authgate.io"),
		FromName:    getEnv("EMAIL_FROM_NAME", "Authgate"),
		AWSRegion:   getEnv("EMAIL_AWS_REGION", getEnv("AWS_REGION", "us-east-1")),
	}
}
