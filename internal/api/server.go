package api

import (
	"net/http"

	"github.com/aidiy/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	mx                  *chi.Mux
	userService         service.UserServiceI
	childrenService     service.ChildrenServiceI
	choreService        service.ChoreServiceI
	workflowService     service.WorkflowServiceI
	notificationService service.NotificationServiceI
	aiService           service.AIServiceI
	jwtService          JWTServiceI
}

type ServicesList struct {
	UserService         service.UserServiceI
	ChildrenService     service.ChildrenServiceI
	ChoreService        service.ChoreServiceI
	WorkflowService     service.WorkflowServiceI
	NotificationService service.NotificationServiceI
	AIService           service.AIServiceI
	JwtService          JWTServiceI
}

func New(servicesOptions *ServicesList) *Server {
	s := newUnrouted(servicesOptions)
	s.registerRoutes()
	return s
}

func newUnrouted(servicesOptions *ServicesList) *Server {
	return &Server{
		mx:                  chi.NewMux(),
		userService:         servicesOptions.UserService,
		childrenService:     servicesOptions.ChildrenService,
		choreService:        servicesOptions.ChoreService,
		workflowService:     servicesOptions.WorkflowService,
		notificationService: servicesOptions.NotificationService,
		aiService:           servicesOptions.AIService,
		jwtService:          servicesOptions.JwtService,
	}
}

func (s *Server) registerRoutes() {
	s.mx.Use(s.RequestIDMiddleware)
	s.mx.Use(s.SettingUpLoggerMiddleware)

	s.mx.Get("/", s.Index)
	s.mx.Route("/api", func(r chi.Router) {
		r.Get("/health", s.Health)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.Register)
			r.Post("/send-otp", s.SendOTP)
			r.Post("/resend-otp", s.SendOTP)
			r.Post("/verify-otp", s.VerifyOTP)
			r.Post("/reset-password", s.ResetPassword)
			r.Post("/login", s.Login)
			r.Post("/logout", s.Logout)
			r.Post("/kid-login", s.KidLogin)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware)
			r.Route("/users", func(r chi.Router) {
				r.Get("/profile", s.Profile)
				r.Put("/profile", s.UpdateProfile)
				r.Post("/complete-assessment", s.CompleteAssessment)
				r.Get("/children", s.GetChildren)
				r.Post("/children", s.AddChild)
				r.Put("/children/{username}", s.UpdateChild)
			})
			r.Route("/chores", func(r chi.Router) {
				r.Get("/", s.GetChores)
				r.Post("/", s.CreateChore)
				r.Get("/recommendations", s.ChoreRecommendations)
				r.Post("/assign-to-goal", s.AssignChoresToGoal)
				r.Put("/{id}", s.UpdateChore)
				r.Delete("/{id}", s.DeleteChore)
			})
			r.Route("/goals", func(r chi.Router) {
				r.Get("/", s.GetGoals)
				r.Post("/", s.CreateGoal)
				r.Post("/submit-progress", s.SubmitProgress)
				r.Post("/{id}/approve", s.ApproveGoal)
				r.Post("/{id}/decline", s.DeclineGoal)
				r.Get("/{id}/chores", s.GetGoalChores)
			})
			r.Route("/progress", func(r chi.Router) {
				r.Post("/{id}/approve", s.ApproveSubmission)
				r.Post("/{id}/decline", s.DeclineSubmission)
			})
			r.Route("/parent", func(r chi.Router) {
				r.Get("/goals", s.GetParentGoals)
				r.Get("/children-progress", s.ChildrenProgress)
				r.Get("/children-chores", s.ChildrenChores)
			})
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.GetNotifications)
				r.Get("/unread-count", s.UnreadCount)
				r.Post("/mark-read", s.MarkAllNotificationsRead)
				r.Post("/{id}/mark-read", s.MarkNotificationRead)
			})
			r.Route("/chat/sessions", func(r chi.Router) {
				r.Get("/", s.GetChatSessions)
				r.Post("/", s.CreateChatSession)
				r.Get("/{id}", s.GetChatSession)
				r.Put("/{id}", s.RenameChatSession)
				r.Delete("/{id}", s.DeleteChatSession)
			})
			r.Route("/ai", func(r chi.Router) {
				r.Post("/chat", s.AIChat)
				r.Post("/speech-to-text", s.SpeechToText)
			})
		})
	})
}

func (s *Server) Run(address string) error {
	return http.ListenAndServe(address, s.mx)
}

// Handler exposes the routed mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mx
}
