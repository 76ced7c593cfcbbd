package user_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jinjinsansan/boat-backend/internal/api/v1/admin/user"
	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

func setupTestDB() {
	// Use in-memory SQLite for testing
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	// Drop tables if exist to ensure clean state and schema update
	db.Migrator().DropTable(&models.User{}, &models.PointTransaction{})

	// Migrate schema
	err = db.AutoMigrate(&models.User{}, &models.PointTransaction{})
	if err != nil {
		panic("failed to migrate database")
	}

	// Clean up data
	db.Exec("DELETE FROM users")
	db.Exec("DELETE FROM point_transactions")

	// Assign to global DB
	database.DB = db
}

func TestListUsers(t *testing.T) {
	setupTestDB()
	gin.SetMode(gin.TestMode)

	// Seed some data
	database.DB.Create(&models.User{
		Email:        "admin@example.com",
		Role:         "admin",
		Password:     "hashedpassword",
		ReferralCode: "AAAAAA",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
	database.DB.Create(&models.User{
		Email:        "user1@example.com",
		Role:         "user",
		Password:     "hashedpassword",
		ReferralCode: "BBBBBB",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})

	tests := []struct {
		name           string
		page           string
		limit          string
		expectedStatus int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name:           "Valid Pagination",
			page:           "1",
			limit:          "10",
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp struct {
					Code    int                   `json:"status"`
					Message string                `json:"message"`
					Data    user.UserListResponse `json:"data"`
				}
				err := json.Unmarshal(body, &resp)
				assert.NoError(t, err)
				assert.Equal(t, 200, resp.Code)
				assert.NotEmpty(t, resp.Data.Users)
				assert.Equal(t, int64(2), resp.Data.Total)
				assert.False(t, resp.Data.Users[0].LineLinked)
			},
		},
		{
			name:           "Invalid Page",
			page:           "0",
			limit:          "10",
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "Invalid page number")
			},
		},
		{
			name:           "Invalid Limit",
			page:           "1",
			limit:          "-1",
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "Invalid limit number")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/admin/users", user.ListUsers)

			req, _ := http.NewRequest(http.MethodGet, "/admin/users?page="+tt.page+"&limit="+tt.limit, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkResponse(t, w.Body.Bytes())
		})
	}
}

func TestUpdateUser(t *testing.T) {
	setupTestDB()
	gin.SetMode(gin.TestMode)

	seedUser := models.User{
		Email:        "target@example.com",
		Role:         "user",
		Password:     "oldpassword",
		ReferralCode: "CCCCCC",
		Version:      1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	database.DB.Create(&seedUser)

	tests := []struct {
		name           string
		userID         string
		body           string
		expectedStatus int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name:           "Promote to Admin",
			userID:         strconv.Itoa(int(seedUser.ID)),
			body:           `{"role": "admin"}`,
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp struct {
					Code int               `json:"status"`
					Data user.UserListItem `json:"data"`
				}
				json.Unmarshal(body, &resp)
				assert.Equal(t, "admin", resp.Data.Role)

				// Verify DB
				var u models.User
				database.DB.First(&u, resp.Data.ID)
				assert.Equal(t, "admin", u.Role)
			},
		},
		{
			name:           "Invalid Role",
			userID:         strconv.Itoa(int(seedUser.ID)),
			body:           `{"role": "superuser"}`,
			expectedStatus: http.StatusBadRequest,
			checkResponse:  func(t *testing.T, body []byte) {},
		},
		{
			name:           "No Fields",
			userID:         strconv.Itoa(int(seedUser.ID)),
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "No fields to update")
			},
		},
		{
			name:           "User Not Found",
			userID:         "99999",
			body:           `{"role": "user"}`,
			expectedStatus: http.StatusNotFound,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "User not found")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.PATCH("/admin/users/:id", user.UpdateUser)

			req, _ := http.NewRequest(http.MethodPatch, "/admin/users/"+tt.userID, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkResponse(t, w.Body.Bytes())
		})
	}
}
