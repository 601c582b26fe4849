package main

import (
	"crm-backend/config"
	apiv1 "crm-backend/controllers/v1"
	"crm-backend/fiberlog"
	"crm-backend/initializers"
	"crm-backend/middleware"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"
)

func main() {
	initializers.InitAllServices()

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // limit of 10MB
	})
	app.Use(fiberRecover.New())
	app.Use(requestid.New())

	//api
	apiV1 := fiber.New()
	apiV1.Use(fiberlog.New(*initializers.LoggerConfig))
	app.Mount("/api/v1", apiV1)
	apiV1.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, PUT",
	}))
	apiV1.Use(middleware.WithBodyLimit(1024 * 1024))
	apiV1.Use(middleware.AuthorizationRequired())
	apiV1.Use(middleware.SpaceRequired())
	apiV1.Use(middleware.RbacMiddleware())

	apiv1.InitAutomationRuleApiRouters(apiV1)
	apiv1.InitApprovalWorkflowApiRouters(apiV1)
	apiv1.InitApprovalRequestApiRouters(apiV1)
	apiv1.InitLeadApiRouters(apiV1)
	apiv1.InitDealApiRouters(apiV1)
	apiv1.InitCustomerApiRouters(apiV1)
	apiv1.InitDocumentApiRouters(apiV1)
	apiv1.InitAccountApiRouters(apiV1)

	// gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	wg := sync.WaitGroup{}
	go func() {
		<-c
		wg.Add(1)
		defer wg.Done()
		log.Info("Gracefully shutting down...")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Error when try gracefully shutting down")
		}
		time.Sleep(time.Second)
		log.Info("Gracefully shutting down finished")
	}()

	// run HTTP server
	if err := app.Listen(fmt.Sprintf("%s:%d", config.Conf.App.ListenAddr, config.Conf.App.Port)); err != nil {
		log.Fatal(err)
	}

	wg.Wait()
	log.Info("HTTP server successfully stopped")
}
