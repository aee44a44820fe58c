package router

import (
	"net/http"

	"Uni_Connect/internal/handler"
	"Uni_Connect/internal/middleware"
	"Uni_Connect/internal/pkg"
	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps 路由所需的全部依赖，由 main 组装
type Deps struct {
	Log    *zap.Logger
	JWT    *pkg.JWTManager
	Tokens middleware.TokenChecker
	Broker realtime.Broker
	Blobs  handler.Uploader

	Users         *service.UserService
	Email         *service.EmailService
	Groups        *service.GroupService
	JoinRequests  *service.JoinRequestService
	Notifications *service.NotificationService
	Friends       *service.FriendService
	Messages      *service.MessageService
	Posts         *service.PostService
	Likes         *service.PostLikeService
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(d.Log), middleware.Recovery(d.Log))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"msg": "ok"}) })

	user := handler.NewUserHandler(d.Users)
	email := handler.NewEmailHandler(d.Email)
	profile := handler.NewProfileHandler(d.Users, d.Friends)
	friend := handler.NewFriendHandler(d.Friends)
	group := handler.NewGroupHandler(d.Groups)
	join := handler.NewJoinRequestHandler(d.JoinRequests)
	notice := handler.NewNotificationHandler(d.Notifications)
	message := handler.NewMessageHandler(d.Messages)
	post := handler.NewPostHandler(d.Posts)
	like := handler.NewPostLikeHandler(d.Likes)
	ws := handler.NewRealtimeHandler(d.Messages, d.Notifications, d.Broker, d.Log)

	auth := middleware.Auth(d.JWT, d.Tokens)

	// 邮件相关接口
	r.POST("/api/email/:scope/code", email.SendCode)

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/reset", user.ResetPassword)
		userGroup.POST("/refresh", user.TokenRefresh)
		userGroup.POST("/logout", auth, user.Logout)
		userGroup.POST("/change-password", auth, user.ChangePassword)
	}

	api := r.Group("/api", auth)

	profileGroup := api.Group("/profile")
	{
		profileGroup.GET("", profile.Me)
		profileGroup.PATCH("", profile.Update)
		profileGroup.GET("/search", profile.Search)
		profileGroup.GET("/suggestions", profile.Suggestions)
		profileGroup.GET("/:id", profile.Get)
	}

	friendGroup := api.Group("/friends")
	{
		friendGroup.GET("", friend.List)
		friendGroup.DELETE("/:id", friend.Remove)
		friendGroup.POST("/requests", friend.SendRequest)
		friendGroup.GET("/requests/incoming", friend.Incoming)
		friendGroup.GET("/requests/outgoing", friend.Outgoing)
		friendGroup.POST("/requests/:id/respond", friend.Respond)
	}

	// 群组与成员
	groupGroup := api.Group("/groups")
	{
		groupGroup.POST("", group.Create)
		groupGroup.GET("", group.List)
		groupGroup.GET("/mine", group.Mine)
		groupGroup.GET("/:id", group.Get)
		groupGroup.PATCH("/:id", group.Update)
		groupGroup.DELETE("/:id", group.Delete)
		groupGroup.GET("/:id/members", group.Members)
		groupGroup.POST("/:id/members", group.AddMembers)
		groupGroup.DELETE("/:id/members/:uid", group.RemoveMember)
		groupGroup.POST("/:id/leave", group.Leave)
		groupGroup.POST("/:id/transfer", group.Transfer)
		groupGroup.PUT("/:id/secondary-admins", group.SecondaryAdmins)
		groupGroup.GET("/:id/membership", group.Membership)
		groupGroup.POST("/:id/join-requests", join.Submit)
		groupGroup.GET("/:id/join-requests", join.ListPending)
		groupGroup.GET("/:id/join-requests/status", join.Status)
	}
	api.POST("/join-requests/:id/resolve", join.Resolve)

	noticeGroup := api.Group("/notifications")
	{
		noticeGroup.GET("", notice.Inbox)
		noticeGroup.GET("/unread", notice.Unread)
		noticeGroup.POST("/read-all", notice.MarkAllRead)
		noticeGroup.POST("/:id/read", notice.MarkRead)
		noticeGroup.DELETE("/:id", notice.Clear)
		noticeGroup.DELETE("", notice.ClearAll)
	}

	messageGroup := api.Group("/messages")
	{
		messageGroup.POST("/groups/:id", message.SendGroup)
		messageGroup.GET("/groups/:id", message.ListGroup)
		messageGroup.DELETE("/groups/:id/:mid", message.DeleteGroup)
		messageGroup.POST("/direct/:peer", message.SendDirect)
		messageGroup.GET("/direct/:peer", message.ListDirect)
		messageGroup.POST("/direct/:peer/read", message.MarkRead)
	}

	// 帖子相关接口
	postGroup := api.Group("/posts")
	{
		postGroup.POST("", post.CreatePost)
		postGroup.GET("", post.Feed)
		postGroup.GET("/user/:id", post.ListByAuthor)
		postGroup.GET("/:id", post.Get)
		postGroup.DELETE("/:id", post.DeletePost)
		postGroup.POST("/:id/like", like.Like)
		postGroup.DELETE("/:id/like", like.Unlike)
		postGroup.GET("/:id/like", like.IsLiked)
		postGroup.GET("/:id/likes", like.Count)
	}

	if d.Blobs != nil {
		upload := handler.NewUploadHandler(d.Blobs)
		api.POST("/upload/:bucket", upload.Upload)
	}

	api.GET("/ws", ws.Serve)

	return r
}
