package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

const dateLayout = "2006-01-02"

func (s *Server) handleListBuckets(c *gin.Context) {
	buckets, err := s.engine.ListBuckets(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

type createBucketRequest struct {
	Balance *decimal.Decimal `json:"balance"`
	Name    string           `json:"name" binding:"required"`
}

func (s *Server) handleCreateBucket(c *gin.Context) {
	var req createBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "name is required")
		return
	}

	balance := decimal.Zero
	if req.Balance != nil {
		balance = *req.Balance
	}

	bucket, err := s.engine.CreateBucket(c.Request.Context(), currentUser(c).ID, req.Name, balance)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, bucket)
}

type setBalanceRequest struct {
	Balance *decimal.Decimal `json:"balance" binding:"required"`
}

func (s *Server) handleSetBucketBalance(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	var req setBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "balance is required")
		return
	}

	bucket, err := s.engine.SetBucketBalance(c.Request.Context(), currentUser(c).ID, id, *req.Balance)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bucket)
}

func (s *Server) handleBucketSummary(c *gin.Context) {
	summary, err := s.engine.BucketSummary(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// transactionFilter reads the list filters from the query string.
func transactionFilter(c *gin.Context) (service.TransactionFilter, string) {
	var filter service.TransactionFilter

	if v := c.Query("bucketId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, "invalid bucketId"
		}
		filter.BucketID = &id
	}
	if v := c.Query("type"); v != "" {
		filter.Type = model.TransactionType(strings.ToUpper(v))
		if !filter.Type.Valid() {
			return filter, "invalid type"
		}
	}
	if v := c.Query("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filter, "invalid startDate"
		}
		filter.StartDate = &t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filter, "invalid endDate"
		}
		// A bare date covers the whole day.
		if len(v) == len(dateLayout) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.EndDate = &t
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return filter, "invalid " + name
			}
			*dst = n
		}
	}
	return filter, ""
}

// parseDate accepts RFC 3339 timestamps or bare dates, in UTC.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(dateLayout, v)
}

func (s *Server) handleListTransactions(c *gin.Context) {
	filter, problem := transactionFilter(c)
	if problem != "" {
		s.badRequest(c, problem)
		return
	}

	txns, err := s.engine.ListTransactions(c.Request.Context(), currentUser(c).ID, filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

type createTransactionRequest struct {
	Date               *time.Time             `json:"date"`
	Amount             decimal.Decimal        `json:"amount"`
	Type               model.TransactionType  `json:"type" binding:"required"`
	Category           model.SpendingCategory `json:"category" binding:"required"`
	Description        string                 `json:"description"`
	RecurringFrequency string                 `json:"recurringFrequency"`
	BucketID           int64                  `json:"bucketId" binding:"required"`
	IsRecurring        bool                   `json:"isRecurring"`
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "bucketId, type, amount and category are required")
		return
	}

	date := s.now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	txn, err := s.engine.RecordTransaction(c.Request.Context(), currentUser(c).ID, model.Transaction{
		BucketID:           req.BucketID,
		Type:               req.Type,
		Amount:             req.Amount,
		Category:           req.Category,
		Description:        strings.TrimSpace(req.Description),
		Date:               date,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (s *Server) handleDeleteTransaction(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	if err := s.engine.DeleteTransaction(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListGoals(c *gin.Context) {
	goals, err := s.engine.ListGoals(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

type createGoalRequest struct {
	TargetDate    *time.Time       `json:"targetDate"`
	CurrentAmount *decimal.Decimal `json:"currentAmount"`
	TargetAmount  decimal.Decimal  `json:"targetAmount"`
	Name          string           `json:"name" binding:"required"`
	BucketID      int64            `json:"bucketId" binding:"required"`
}

func (s *Server) handleCreateGoal(c *gin.Context) {
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "bucketId, name and targetAmount are required")
		return
	}

	goal := model.Goal{
		BucketID:     req.BucketID,
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		TargetDate:   req.TargetDate,
	}
	if req.CurrentAmount != nil {
		goal.CurrentAmount = *req.CurrentAmount
	}

	created, err := s.engine.CreateGoal(c.Request.Context(), currentUser(c).ID, goal)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type goalProgressRequest struct {
	CurrentAmount *decimal.Decimal `json:"currentAmount" binding:"required"`
}

func (s *Server) handleUpdateGoalProgress(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	var req goalProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "currentAmount is required")
		return
	}

	goal, err := s.engine.UpdateGoalProgress(c.Request.Context(), currentUser(c).ID, id, *req.CurrentAmount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) handleDeleteGoal(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	if err := s.engine.DeleteGoal(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListHabits(c *gin.Context) {
	habits, err := s.engine.ListHabits(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, habits)
}

type createHabitRequest struct {
	IsActive  *bool                 `json:"isActive"`
	Price     decimal.Decimal       `json:"price"`
	Name      string                `json:"name" binding:"required"`
	Frequency string                `json:"frequency"`
	Type      model.TransactionType `json:"type" binding:"required"`
	BucketID  int64                 `json:"bucketId" binding:"required"`
}

func (s *Server) handleCreateHabit(c *gin.Context) {
	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "bucketId, name, type and price are required")
		return
	}

	habit := model.Habit{
		BucketID:  req.BucketID,
		Name:      req.Name,
		Type:      req.Type,
		Price:     req.Price,
		Frequency: req.Frequency,
		IsActive:  true,
	}
	if req.IsActive != nil {
		habit.IsActive = *req.IsActive
	}

	created, err := s.engine.CreateHabit(c.Request.Context(), currentUser(c).ID, habit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type completeHabitRequest struct {
	CompletedAt *time.Time `json:"completedAt"`
}

func (s *Server) handleCompleteHabit(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	// The body is optional.
	var req completeHabitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, "invalid completedAt")
			return
		}
	}

	var completedAt time.Time
	if req.CompletedAt != nil {
		completedAt = req.CompletedAt.UTC()
	}

	completion, err := s.engine.CompleteHabit(c.Request.Context(), currentUser(c).ID, id, completedAt)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, completion)
}

func (s *Server) handleHabitHistory(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	history, err := s.engine.HabitHistory(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) handleDeleteHabit(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	if err := s.engine.DeleteHabit(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDeleteHabitCompletion(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	if err := s.engine.DeleteHabitCompletion(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListJournal(c *gin.Context) {
	entries, err := s.engine.ListJournalEntries(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type createJournalRequest struct {
	Snapshot *model.FinancialSnapshot `json:"financialSnapshot"`
	Content  string                   `json:"content" binding:"required"`
}

func (s *Server) handleCreateJournal(c *gin.Context) {
	var req createJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "content is required")
		return
	}

	entry, err := s.engine.CreateJournalEntry(c.Request.Context(), currentUser(c).ID, req.Content, req.Snapshot)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleDeleteJournal(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	if err := s.engine.DeleteJournalEntry(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCompleteOnboarding(c *gin.Context) {
	buckets, err := s.engine.CompleteOnboarding(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "buckets": buckets})
}

func (s *Server) handleFinancialProgress(c *gin.Context) {
	days := 0
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.badRequest(c, "days must be a number")
			return
		}
		days = n
	}

	progress, err := s.engine.FinancialProgress(c.Request.Context(), currentUser(c).ID, days)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}
