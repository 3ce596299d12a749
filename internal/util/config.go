package util

import "github.com/mxcd/go-config/config"

func InitConfig() error {
	err := config.LoadConfig([]config.Value{
		config.String("DEPLOYMENT_IMAGE_TAG").NotEmpty().Default("development"),

		config.String("LOG_LEVEL").NotEmpty().Default("info"),

		config.Int("PORT").Default(8080),
		config.String("HEALTH_ENDPOINT").Default("/health"),
		config.String("METRICS_ENDPOINT").Default("/metrics"),
		config.String("SESSION_UI_ENDPOINT").Default("/session/ui"),
		config.String("SESSION_API_ENDPOINT").Default("/session/api"),

		config.Bool("ENABLE_USERINFO_ENDPOINT").Default(false),

		config.Bool("DEV").Default(false),

		// origin of the protected application, also the default post logout target
		config.String("BASE_URL").NotEmpty().Default("http://localhost:8080"),

		config.String("ROUTES_BASE_PATH").Default(""),
		config.String("ROUTES_LOGIN").Default("/login"),
		config.String("ROUTES_CALLBACK").Default("/callback"),
		config.String("ROUTES_LOGOUT").Default("/logout"),
		config.Bool("ROUTES_LOGOUT_ENABLED").Default(true),
		config.String("ROUTES_POST_LOGOUT_REDIRECT").Default(""),
		// used by the custom logout route when ROUTES_LOGOUT_ENABLED is false
		config.String("LOGOUT_RETURN_TO").Default(""),

		config.String("SESSION_SIGNING_KEY").NotEmpty().Sensitive(),
		config.String("SESSION_ENCRYPTION_KEY").NotEmpty().Sensitive(), // 32 or 64 bytes
		config.String("SESSION_NAME").NotEmpty().Default("appSession"),
		config.String("SESSION_DOMAIN").Default(""),
		config.String("SESSION_COOKIE_PATH").NotEmpty().Default("/"),
		config.Int("SESSION_MAX_AGE").Default(86400),
		config.Bool("SESSION_SECURE").Default(true),
		config.Int("SESSION_CACHE_SIZE").Default(10000),

		config.Bool("SESSION_REDIS_ENABLED").Default(false),
		config.String("SESSION_REDIS_HOST").Default("localhost"),
		config.Int("SESSION_REDIS_PORT").Default(6379),
		config.String("SESSION_REDIS_PASSWORD").Sensitive().Default(""),
		config.Int("SESSION_REDIS_DB").Default(0),
		config.String("SESSION_REDIS_KEY_PREFIX").Default("oidc-sessions"),

		config.String("OIDC_ISSUER_BASE_URL").NotEmpty().Default("http://localhost:8000/realms/dev"),
		config.String("OIDC_CLIENT_ID").NotEmpty().Default("test-app"),
		config.String("OIDC_CLIENT_SECRET").NotEmpty().Sensitive().Default("test-app-secret"),
		// derived from BASE_URL and the callback route if empty
		config.String("OIDC_REDIRECT_URI").Default(""),
		config.StringArray("OIDC_SCOPES").Default([]string{"openid", "profile", "email"}),
		config.Bool("OIDC_IDP_LOGOUT").Default(false),
		config.Bool("OIDC_AUTHOK_LOGOUT").Default(false),
		config.Bool("OIDC_ATTEMPT_SILENT_LOGIN").Default(false),
	})
	return err
}
