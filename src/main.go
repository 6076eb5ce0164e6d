package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"strconv"
	"time"

	"smartcheckin/src/boot"
	"smartcheckin/src/config"
	"smartcheckin/src/controllers"
	"smartcheckin/src/middlewares"
	"smartcheckin/src/utils"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
)

const (
	apiPrefix string = "/api/v1"
)

var gtdate validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := utils.ParseStayDate(date)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	fieldValue, ok := field.Interface().(string)
	if !ok {
		return false
	}
	fielddatetime, err := utils.ParseStayDate(fieldValue)
	if err != nil {
		return false
	}
	return datetime.After(fielddatetime)
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	return g.Group(apiPrefix)
}

// publicRoutes covers everything reachable without an owner session: login,
// the token-scoped guest flow, the payment callback and local file serving.
func publicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		POST("/auth/login", func(ctx *gin.Context) {
			token, status, err := controllers.AuthLogin(ctx)
			if err != nil {
				log.Printf("Error on AuthLogin: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"token": token})
		})

	checkinHandlers(apiv1)
	paymentHandlers(apiv1)

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = path.Join("public", "uploads")
	}
	g.Static("/uploads", uploadDir)

	return apiv1
}

func syncRoutes(g *gin.Engine) *gin.RouterGroup {
	sync := apiv1Group(g)
	sync.Use(middlewares.SyncAuthMiddleware)
	return syncHandlers(sync)
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("Could not load .env: %s\n", err.Error())
		}
	}
	initLogger()

	boot.InitDb()
	boot.InitScheduler()
	boot.SeedDemoData()

	router := setupRouter()

	appHost := config.AppHost()
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOrigins = []string{appHost}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		cc.MaxAge = 12 * time.Hour
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("gtdate", gtdate)
	}

	router = maintenanceModeMiddleware(router)

	publicRoutes(router)

	syncRoutes(router)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		authorized = apartmentHandlers(authorized)
		authorized = reservationHandlers(authorized)
		authorized = passportHandlers(authorized)
		authorized = depositHandlers(authorized)
		authorized = notificationHandlers(authorized)
		authorized = lockHandlers(authorized)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
