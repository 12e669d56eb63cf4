// A very simple gin HTTP server exposing the planning session:
// dataset summary, single solves and margin scans as JSON. Rendering
// is left to whatever sits in front of it.
package gui

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nfvsched/replan/internal/config"
	"github.com/nfvsched/replan/internal/model"
	"github.com/nfvsched/replan/plan"
	"github.com/nfvsched/replan/statistics"
)

var session *plan.Session
var router *gin.Engine

type solveRequest struct {
	Mode          string  `json:"mode" binding:"required"`
	Margin        float64 `json:"margin" binding:"required"`
	BudgetSeconds int     `json:"budget_seconds"`
}

type scanRequest struct {
	Mode          string  `json:"mode" binding:"required"`
	MarginStart   float64 `json:"margin_start" binding:"required"`
	MarginStop    float64 `json:"margin_stop" binding:"required"`
	MarginStep    float64 `json:"margin_step" binding:"required"`
	BudgetSeconds int     `json:"budget_seconds"`
}

func budget(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = config.PlannerGeneralConfig.TimeBudgetSeconds
	}
	if seconds <= 0 {
		seconds = 120
	}
	return time.Duration(seconds) * time.Second
}

func registerRoutes() {
	router.GET("/dataset", func(ctx *gin.Context) {
		ds := session.Dataset()
		ctx.JSON(http.StatusOK, gin.H{
			"horizon":  ds.Horizon,
			"clusters": len(ds.Clusters),
			"nodes":    len(ds.Nodes),
			"jobs":     len(ds.Jobs),
		})
	})

	router.POST("/solve", func(ctx *gin.Context) {
		var req solveRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		mode, err := model.ParseMode(req.Mode)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome := session.Solve(ctx.Request.Context(), mode, req.Margin, budget(req.BudgetSeconds))
		ctx.JSON(http.StatusOK, outcome)
	})

	router.POST("/scan", func(ctx *gin.Context) {
		var req scanRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		mode, err := model.ParseMode(req.Mode)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		report := session.Scan(ctx.Request.Context(), mode, plan.ScanSpec{
			Start: req.MarginStart,
			Stop:  req.MarginStop,
			Step:  req.MarginStep,
		}, budget(req.BudgetSeconds))
		ctx.JSON(http.StatusOK, report)
	})

	router.GET("/statistics", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, statistics.Snapshot())
	})
}

func SetUp(planSession *plan.Session) {
	session = planSession

	router = gin.Default()
	router.Use(cors.Default())

	registerRoutes()
}

func Run(address string) {
	router.Run(address)
}
