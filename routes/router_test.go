package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/socialnet/config"
	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/storage"
	"github.com/cppla/socialnet/store/sqlstore"
)

var uploadDir string

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	tmp, err := os.MkdirTemp("", "socialnet-routes-")
	if err != nil {
		panic(err)
	}
	uploadDir = filepath.Join(tmp, "uploads")
	config.Set(config.AppConfig{
		JWTSecret: "routes-test-secret",
		GinMode:   "test",
		GinPath:   filepath.Join(tmp, "gin.log"),
		UploadDir: uploadDir,
	})
	code := m.Run()
	_ = os.RemoveAll(tmp)
	os.Exit(code)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dsn := fmt.Sprintf("file:routes_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	st, err := sqlstore.New(db)
	if err != nil {
		t.Fatalf("sqlstore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	cfg := config.Get()
	bucket, err := storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL+"/static/uploads")
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	return SetupRouter(services.New(st, bucket, cfg.UploadMaxBytes))
}

type response struct {
	status int
	body   map[string]interface{}
}

func (r response) str(key string) string {
	s, _ := r.body[key].(string)
	return s
}

func (r response) obj(key string) map[string]interface{} {
	m, _ := r.body[key].(map[string]interface{})
	return m
}

func call(t *testing.T, h http.Handler, method, path, token string, body interface{}) response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(t, h, req)
}

func serve(t *testing.T, h http.Handler, req *http.Request) response {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	res := response{status: w.Code, body: map[string]interface{}{}}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &res.body); err != nil {
			t.Fatalf("%s %s: decode %q: %v", req.Method, req.URL.Path, w.Body.String(), err)
		}
	}
	return res
}

func registerUser(t *testing.T, h http.Handler, username, email string) (token, id string) {
	t.Helper()
	res := call(t, h, http.MethodPost, "/auth/register", "", gin.H{"username": username, "email": email, "password": "Passw0rd"})
	if res.status != http.StatusCreated || res.body["success"] != true {
		t.Fatalf("register %s: %d %v", username, res.status, res.body)
	}
	if res.str("message") != "User registered successfully" {
		t.Fatalf("register message = %q", res.str("message"))
	}
	return res.str("token"), res.obj("user")["id"].(string)
}

func TestSocialScenario(t *testing.T) {
	r := newRouter(t)
	aliceTok, aliceID := registerUser(t, r, "alice99", "alice@x.com")
	bobTok, bobID := registerUser(t, r, "bob", "bob@x.com")

	res := call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@x.com", "password": "Passw0rd"})
	if res.status != http.StatusOK || res.str("message") != "Login successful" || res.str("token") == "" {
		t.Fatalf("login: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@x.com", "password": "nope"})
	if res.status != http.StatusBadRequest || res.str("message") != "Invalid credentials" {
		t.Fatalf("bad login: %d %v", res.status, res.body)
	}

	// follow graph
	res = call(t, r, http.MethodPost, "/users/"+bobID+"/follow", aliceTok, nil)
	if res.status != http.StatusOK || res.body["isFollowing"] != true {
		t.Fatalf("follow: %d %v", res.status, res.body)
	}
	followers := res.obj("user")["followers"].([]interface{})
	if len(followers) != 1 || followers[0].(map[string]interface{})["username"] != "alice99" {
		t.Fatalf("followers = %v", followers)
	}
	res = call(t, r, http.MethodPost, "/users/"+bobID+"/follow", aliceTok, nil)
	if res.status != http.StatusBadRequest || res.str("message") != "You are already following this user" {
		t.Fatalf("second follow: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodPost, "/users/"+aliceID+"/follow", aliceTok, nil)
	if res.status != http.StatusBadRequest || res.str("message") != "You cannot follow yourself" {
		t.Fatalf("self follow: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodGet, "/users/profile/bob", aliceTok, nil)
	if res.status != http.StatusOK || res.body["isFollowing"] != true {
		t.Fatalf("profile: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodDelete, "/users/"+bobID+"/follow", aliceTok, nil)
	if res.status != http.StatusOK || res.body["isFollowing"] != false {
		t.Fatalf("unfollow: %d %v", res.status, res.body)
	}

	// posts, likes and comments
	res = call(t, r, http.MethodPost, "/posts", bobTok, gin.H{"content": "hello", "tags": []string{"go"}})
	if res.status != http.StatusCreated {
		t.Fatalf("create post: %d %v", res.status, res.body)
	}
	postID := res.obj("post")["id"].(string)

	res = call(t, r, http.MethodPost, "/posts/"+postID+"/like", aliceTok, nil)
	if res.status != http.StatusOK || res.body["isLiked"] != true || res.str("message") != "Post liked" {
		t.Fatalf("like: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodPost, "/posts/"+postID+"/like", aliceTok, nil)
	if res.body["isLiked"] != false || res.str("message") != "Post unliked" || res.obj("post")["likesCount"] != float64(0) {
		t.Fatalf("unlike: %d %v", res.status, res.body)
	}

	res = call(t, r, http.MethodPost, "/comments/post/"+postID, aliceTok, gin.H{"content": "nice"})
	if res.status != http.StatusCreated || res.str("message") != "Comment created successfully" {
		t.Fatalf("comment: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodGet, "/comments/post/"+postID, "", nil)
	if res.status != http.StatusOK || len(res.body["comments"].([]interface{})) != 1 {
		t.Fatalf("list comments: %d %v", res.status, res.body)
	}

	res = call(t, r, http.MethodGet, "/posts?page=1&limit=10", "", nil)
	if res.status != http.StatusOK || res.body["totalPosts"] != float64(1) || res.body["currentPage"] != float64(1) {
		t.Fatalf("feed: %d %v", res.status, res.body)
	}

	res = call(t, r, http.MethodGet, "/posts/user/"+bobID, "", nil)
	if res.status != http.StatusOK || len(res.body["posts"].([]interface{})) != 1 {
		t.Fatalf("posts by user: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodGet, "/posts/"+postID, "", nil)
	if res.status != http.StatusOK || len(res.obj("post")["comments"].([]interface{})) != 1 {
		t.Fatalf("get post: %d %v", res.status, res.body)
	}

	res = call(t, r, http.MethodDelete, "/posts/"+postID, aliceTok, nil)
	if res.status != http.StatusForbidden || res.str("message") != "You are not authorized to delete this post" {
		t.Fatalf("foreign delete: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodDelete, "/posts/"+postID, bobTok, nil)
	if res.status != http.StatusOK || res.str("message") != "Post deleted successfully" {
		t.Fatalf("delete: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodGet, "/posts/"+postID, "", nil)
	if res.status != http.StatusNotFound || res.str("message") != "Post not found" {
		t.Fatalf("get deleted: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodGet, "/comments/post/"+postID, "", nil)
	if len(res.body["comments"].([]interface{})) != 0 {
		t.Fatalf("comments survived delete: %v", res.body)
	}

	res = call(t, r, http.MethodGet, "/stats", "", nil)
	stats := res.obj("stats")
	if res.status != http.StatusOK || stats["userCount"] != float64(2) || stats["postCount"] != float64(0) {
		t.Fatalf("stats: %d %v", res.status, res.body)
	}
}

func TestAuthFailures(t *testing.T) {
	r := newRouter(t)

	res := call(t, r, http.MethodPost, "/posts", "", gin.H{"content": "x"})
	if res.status != http.StatusUnauthorized || res.body["success"] != false {
		t.Fatalf("no token: %d %v", res.status, res.body)
	}
	res = call(t, r, http.MethodGet, "/auth/me", "garbage", nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("bad token: %d %v", res.status, res.body)
	}

	res = call(t, r, http.MethodPost, "/auth/register", "", gin.H{"username": "12", "email": "x", "password": "weak"})
	if res.status != http.StatusBadRequest || res.str("message") != "Validation failed" {
		t.Fatalf("invalid register: %d %v", res.status, res.body)
	}
	if errs, _ := res.body["errors"].([]interface{}); len(errs) != 3 {
		t.Fatalf("field errors = %v", res.body["errors"])
	}

	tok, _ := registerUser(t, r, "carol", "carol@x.com")
	res = call(t, r, http.MethodPost, "/auth/register", "", gin.H{"username": "carol", "email": "c2@x.com", "password": "Passw0rd"})
	if res.status != http.StatusBadRequest || res.str("message") != "User with this email or username already exists" {
		t.Fatalf("duplicate: %d %v", res.status, res.body)
	}

	if res = call(t, r, http.MethodGet, "/auth/me", tok, nil); res.status != http.StatusOK {
		t.Fatalf("me: %d %v", res.status, res.body)
	}
	if res = call(t, r, http.MethodPost, "/auth/logout", tok, nil); res.status != http.StatusOK {
		t.Fatalf("logout: %d %v", res.status, res.body)
	}
	if res = call(t, r, http.MethodGet, "/auth/me", tok, nil); res.status != http.StatusUnauthorized {
		t.Fatalf("me after logout: %d %v", res.status, res.body)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	r := newRouter(t)
	tok, _ := registerUser(t, r, "dave", "dave@x.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "pic.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	res := serve(t, r, req)
	if res.status != http.StatusOK || res.str("message") != "Image uploaded successfully" {
		t.Fatalf("upload: %d %v", res.status, res.body)
	}
	publicID := res.str("publicId")
	if !strings.HasSuffix(res.str("imageUrl"), "/static/uploads/"+publicID) {
		t.Fatalf("imageUrl = %q", res.str("imageUrl"))
	}
	if _, err := os.Stat(filepath.Join(uploadDir, filepath.FromSlash(publicID))); err != nil {
		t.Fatalf("stored file: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/upload/image", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+tok)
	if res = serve(t, r, req); res.status != http.StatusBadRequest || res.str("message") != "No image file provided" {
		t.Fatalf("missing file: %d %v", res.status, res.body)
	}

	if res = call(t, r, http.MethodDelete, "/upload/image", tok, gin.H{"publicId": publicID}); res.status != http.StatusOK {
		t.Fatalf("delete: %d %v", res.status, res.body)
	}
	if res = call(t, r, http.MethodDelete, "/upload/image", tok, gin.H{"publicId": publicID}); res.status != http.StatusNotFound {
		t.Fatalf("delete twice: %d %v", res.status, res.body)
	}
	if res = call(t, r, http.MethodDelete, "/upload/image", tok, gin.H{}); res.str("message") != "Public ID is required" {
		t.Fatalf("delete without id: %d %v", res.status, res.body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newRouter(t)
	if res := call(t, r, http.MethodGet, "/health", "", nil); res.status != http.StatusOK || res.body["success"] != true {
		t.Fatalf("health: %d %v", res.status, res.body)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_request_duration_seconds") {
		t.Fatalf("metrics: %d", w.Code)
	}
	if res := call(t, r, http.MethodGet, "/nope", "", nil); res.status != http.StatusNotFound {
		t.Fatalf("no route: %d", res.status)
	}
}
