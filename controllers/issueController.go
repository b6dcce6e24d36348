package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"campusfix-be/board"
	"campusfix-be/config"
	"campusfix-be/middlewares"
	"campusfix-be/models"
	"campusfix-be/repository"
	"campusfix-be/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type IssueController struct {
	board   *board.Board
	repo    *repository.IssueRepository
	reports *services.ReportService
	cfg     *config.Config
}

func NewIssueController(b *board.Board, repo *repository.IssueRepository, reports *services.ReportService, cfg *config.Config) *IssueController {
	return &IssueController{board: b, repo: repo, reports: reports, cfg: cfg}
}

func actorFrom(c *gin.Context) board.Actor {
	return board.Actor{UserID: middlewares.UserID(c), Admin: middlewares.IsAdmin(c)}
}

// load returns the cached list, fetching it first when needed. A failed
// fetch is reported as a page-level error the caller may retry.
func (ic *IssueController) load(c *gin.Context) ([]models.Issue, bool) {
	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	var err error
	if c.Query("refresh") == "true" {
		err = ic.board.Load(ctx)
	} else {
		err = ic.board.EnsureLoaded(ctx)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retry": true})
		return nil, false
	}
	return ic.board.Issues(), true
}

// Home serves the landing page numbers.
func (ic *IssueController) Home(c *gin.Context) {
	issues, ok := ic.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":      board.ComputeStats(issues),
		"categories": models.Categories,
		"priorities": models.Priorities,
	})
}

// GetAllIssues lists issues with the dashboard filters. page and limit are
// optional; without them the whole filtered list is returned.
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	issues, ok := ic.load(c)
	if !ok {
		return
	}

	var filter board.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filtered := filter.Apply(issues)

	if c.Query("mine") == "true" {
		userID := middlewares.UserID(c)
		if userID == "" {
			respondError(c, repository.ErrAuthRequired)
			return
		}
		mine := filtered[:0:0]
		for _, issue := range filtered {
			if issue.OwnedBy(userID) {
				mine = append(mine, issue)
			}
		}
		filtered = mine
	}

	total := len(filtered)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if page < 1 {
		page = 1
	}
	if limit > 100 {
		limit = 100
	}
	if limit > 0 {
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}
		filtered = filtered[start:end]
	}

	c.JSON(http.StatusOK, gin.H{
		"issues":     filtered,
		"total":      total,
		"page":       page,
		"limit":      limit,
		"stats":      board.ComputeStats(issues),
		"categories": board.Categories(issues),
	})
}

func (ic *IssueController) GetStats(c *gin.Context) {
	issues, ok := ic.load(c)
	if !ok {
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		days = 7
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":     board.ComputeStats(issues),
		"analytics": board.ComputeAnalytics(issues, time.Now(), days),
	})
}

// CreateIssue accepts the report form as JSON or multipart with an optional
// "image" file.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	var input services.ReportInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var image []byte
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		data, err := readFormImage(c, ic.cfg.ImageMaxBytes)
		if err != nil {
			respondError(c, repository.NewValidationError("image", err.Error()))
			return
		}
		image = data
	}

	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout+30*time.Second)
	defer cancel()

	reporter := services.Reporter{UserID: middlewares.UserID(c), Email: middlewares.UserEmail(c)}
	result, err := ic.reports.Submit(ctx, reporter, input, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// readFormImage reads at most maxBytes+1 bytes so an oversized upload is
// detected without buffering all of it.
func readFormImage(c *gin.Context, maxBytes int64) ([]byte, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, err
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, fmt.Errorf("image exceeds the maximum upload size (%d MB max)", maxBytes/(1024*1024))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := maxBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// GetIssue returns one issue with its responses and status history.
func (ic *IssueController) GetIssue(c *gin.Context) {
	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	id := c.Param("id")
	issue, err := ic.repo.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	var (
		responses []models.Response
		history   []models.StatusHistory
		upvoted   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		responses = ic.repo.ListResponses(gctx, id)
		return nil
	})
	g.Go(func() error {
		history = ic.repo.ListStatusHistory(gctx, id)
		return nil
	})
	g.Go(func() error {
		upvoted = ic.repo.CheckUpvoted(gctx, id, middlewares.UserID(c))
		return nil
	})
	_ = g.Wait()

	userID := middlewares.UserID(c)
	c.JSON(http.StatusOK, gin.H{
		"issue":          issue,
		"responses":      responses,
		"status_history": history,
		"upvoted":        upvoted,
		"is_owner":       issue.OwnedBy(userID),
		"is_admin":       middlewares.IsAdmin(c),
	})
}

func (ic *IssueController) UpdateStatus(c *gin.Context) {
	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	issue, err := ic.board.UpdateStatus(ctx, c.Param("id"), models.IssueStatus(input.Status), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

func (ic *IssueController) DeleteIssue(c *gin.Context) {
	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	if err := ic.board.Delete(ctx, c.Param("id"), actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

func (ic *IssueController) ToggleUpvote(c *gin.Context) {
	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	upvoted, count, err := ic.board.ToggleUpvote(ctx, c.Param("id"), middlewares.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upvoted": upvoted, "upvote_count": count})
}

func (ic *IssueController) CheckUpvote(c *gin.Context) {
	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{"upvoted": ic.repo.CheckUpvoted(ctx, c.Param("id"), middlewares.UserID(c))})
}

func (ic *IssueController) GetResponses(c *gin.Context) {
	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{"responses": ic.repo.ListResponses(ctx, c.Param("id"))})
}

func (ic *IssueController) AddResponse(c *gin.Context) {
	var input struct {
		ResponseText string `json:"response_text"`
		ResponseType string `json:"response_type"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typ := models.ResponseType(input.ResponseType)
	if typ == "" {
		typ = models.ResponseUpdate
	}

	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	rows, err := ic.board.AddResponse(ctx, c.Param("id"), input.ResponseText, typ, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"responses": rows})
}

func (ic *IssueController) GetStatusHistory(c *gin.Context) {
	ctx, cancel := requestContext(c, ic.cfg.RequestTimeout)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{"status_history": ic.repo.ListStatusHistory(ctx, c.Param("id"))})
}

