// @title AIDIY API
// @description REST backend for the AIDIY family chores and allowance app
// @BasePath /api
// @schemes http
package main

import (
	"log"

	"github.com/aidiy/backend/internal/api"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/internal/service"
	"github.com/aidiy/backend/pkg/cleanup"
	"github.com/aidiy/backend/pkg/config"
	jwtservice "github.com/aidiy/backend/pkg/jwt_service"
	"github.com/aidiy/backend/pkg/mailer"
	openai "github.com/sashabaranov/go-openai"
)

func init() {
	service.InitValidator()
}

func main() {
	defer cleanup.CleanUp()
	cfg := config.New()
	dbCfg := repository.PGCfg{
		Address:  cfg.GetString("POSTGRES_DB_ADDRESS"),
		Username: cfg.GetString("POSTGRES_USER"),
		Password: cfg.GetString("POSTGRES_PASSWORD"),
		DB:       cfg.GetString("POSTGRES_DB"),
	}

	var sender mailer.Sender = mailer.LogSender{}
	if host := cfg.GetString("SMTP_HOST"); host != "" {
		sender = mailer.NewSMTP(mailer.SMTPConfig{
			Host:     host,
			Port:     cfg.GetInt("SMTP_PORT", 587),
			Username: cfg.GetString("SMTP_USERNAME"),
			Password: cfg.GetString("SMTP_PASSWORD"),
			From:     cfg.GetStringDefault("SMTP_FROM", "noreply@aidiy.app"),
		})
	}

	var aiClient service.OpenAIClient
	if key := cfg.GetString("OPENAI_API_KEY"); key != "" {
		aiClient = openai.NewClient(key)
	}

	usersRepo := repository.NewUsersRepo(&dbCfg)
	otpRepo := repository.NewOTPRepo(&dbCfg)
	childrenRepo := repository.NewChildrenRepo(&dbCfg)
	choresRepo := repository.NewChoresRepo(&dbCfg)
	goalsRepo := repository.NewGoalsRepo(&dbCfg)
	submissionsRepo := repository.NewSubmissionsRepo(&dbCfg)
	notificationsRepo := repository.NewNotificationsRepo(&dbCfg)
	chatSessionsRepo := repository.NewChatSessionsRepo(&dbCfg)

	serv := api.New(&api.ServicesList{
		UserService:         service.NewUserService(usersRepo, otpRepo, sender),
		ChildrenService:     service.NewChildrenService(childrenRepo),
		ChoreService:        service.NewChoreService(choresRepo, goalsRepo, childrenRepo),
		WorkflowService:     service.NewWorkflowService(goalsRepo, choresRepo, submissionsRepo, notificationsRepo, childrenRepo),
		NotificationService: service.NewNotificationService(notificationsRepo),
		AIService:           service.NewAIService(aiClient, chatSessionsRepo, usersRepo),
		JwtService:          jwtservice.New(cfg.GetString("JWT_SECRET")),
	})
	err := serv.Run(cfg.GetStringDefault("API_ADDRESS", ":5050"))
	if err != nil {
		log.Println("Server error: " + err.Error())
	}
}
