package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contactsss/internal/contacts"
	"contactsss/internal/model"
	"contactsss/internal/server/middleware"
	"contactsss/internal/store"
)

// ContactsHandler serves the protected /contacts routes.
type ContactsHandler struct {
	contacts *contacts.Service
	logger   *zap.Logger
}

// NewContactsHandler creates a [ContactsHandler].
func NewContactsHandler(svc *contacts.Service, logger *zap.Logger) *ContactsHandler {
	return &ContactsHandler{contacts: svc, logger: logger}
}

type ContactRequest struct {
	Fullname    string `json:"fullname" binding:"required,max=150"`
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=30"`
	Birthday    string `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
	Additional  string `json:"additional" binding:"max=500"`
	Avatar      string `json:"avatar" binding:"omitempty,url"`
}

type contactResponse struct {
	ID          int64  `json:"id"`
	Fullname    string `json:"fullname"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Birthday    string `json:"birthday,omitempty"`
	Additional  string `json:"additional"`
	Avatar      string `json:"avatar,omitempty"`
}

func (r ContactRequest) toModel() (*model.Contact, error) {
	c := &model.Contact{
		Fullname:    r.Fullname,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Additional:  r.Additional,
		Avatar:      r.Avatar,
	}
	if r.Birthday != "" {
		bd, err := time.Parse("2006-01-02", r.Birthday)
		if err != nil {
			return nil, err
		}
		c.Birthday = &bd
	}
	return c, nil
}

func newContactResponse(c *model.Contact) contactResponse {
	resp := contactResponse{
		ID:          c.ID,
		Fullname:    c.Fullname,
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
		Additional:  c.Additional,
		Avatar:      c.Avatar,
	}
	if c.Birthday != nil {
		resp.Birthday = c.Birthday.Format("2006-01-02")
	}
	return resp
}

func newContactListResponse(list []model.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(list))
	for i := range list {
		out = append(out, newContactResponse(&list[i]))
	}
	return out
}

func (h *ContactsHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, err := h.contacts.List(c.Request.Context(), user.ID, skip, limit)
	if err != nil {
		h.fail(c, err, "listing contacts failed")
		return
	}
	c.JSON(http.StatusOK, newContactListResponse(list))
}

func (h *ContactsHandler) UpcomingBirthdays(c *gin.Context) {
	user := middleware.CurrentUser(c)
	daysRange, _ := strconv.Atoi(c.DefaultQuery("days_range", "7"))

	list, err := h.contacts.UpcomingBirthdays(c.Request.Context(), user.ID, daysRange)
	if err != nil {
		h.fail(c, err, "birthday lookup failed")
		return
	}
	c.JSON(http.StatusOK, newContactListResponse(list))
}

func (h *ContactsHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)

	contact, err := h.contacts.Find(c.Request.Context(), user.ID, c.Param("query"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact was not found"})
			return
		}
		h.fail(c, err, "contact lookup failed")
		return
	}
	c.JSON(http.StatusOK, newContactResponse(contact))
}

func (h *ContactsHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contact, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid birthday"})
		return
	}

	created, err := h.contacts.Create(c.Request.Context(), user.ID, contact)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Contact already exists"})
			return
		}
		h.fail(c, err, "creating contact failed")
		return
	}
	c.JSON(http.StatusCreated, newContactResponse(created))
}

func (h *ContactsHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)

	contactID, err := strconv.ParseInt(c.Param("contact_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact id"})
		return
	}

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contact, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid birthday"})
		return
	}

	updated, err := h.contacts.Update(c.Request.Context(), user.ID, contactID, contact)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact was not found"})
			return
		}
		h.fail(c, err, "updating contact failed")
		return
	}
	c.JSON(http.StatusOK, newContactResponse(updated))
}

func (h *ContactsHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)

	contactID, err := strconv.ParseInt(c.Param("contact_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact id"})
		return
	}

	deleted, err := h.contacts.Delete(c.Request.Context(), user.ID, contactID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact was not found"})
			return
		}
		h.fail(c, err, "deleting contact failed")
		return
	}
	c.JSON(http.StatusOK, newContactResponse(deleted))
}

func (h *ContactsHandler) fail(c *gin.Context, err error, msg string) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}
