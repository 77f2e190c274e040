package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus is the workflow state of a task
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "Not Started"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusOnHold     TaskStatus = "On Hold"
)

// TaskStatuses lists statuses in workflow order
var TaskStatuses = []TaskStatus{StatusNotStarted, StatusInProgress, StatusCompleted, StatusOnHold}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Next returns the status that follows s, wrapping around
func (s TaskStatus) Next() TaskStatus {
	for i, v := range TaskStatuses {
		if s == v {
			return TaskStatuses[(i+1)%len(TaskStatuses)]
		}
	}
	return StatusNotStarted
}

// PlatformType is the platform a task targets
type PlatformType string

const (
	PlatformIOS         PlatformType = "iOS"
	PlatformAndroid     PlatformType = "Android"
	PlatformLinux       PlatformType = "Linux"
	PlatformWindows     PlatformType = "WindowsOS"
	PlatformMacOS       PlatformType = "MacOS"
	PlatformWeb         PlatformType = "Web"
	PlatformIndependent PlatformType = "Platform-Independent"
)

var PlatformTypes = []PlatformType{
	PlatformIOS, PlatformAndroid, PlatformLinux, PlatformWindows,
	PlatformMacOS, PlatformWeb, PlatformIndependent,
}

func (p PlatformType) Valid() bool {
	for _, v := range PlatformTypes {
		if p == v {
			return true
		}
	}
	return false
}

// MediaType is the kind of an uploaded file
type MediaType string

const (
	MediaImage MediaType = "Image"
	MediaVideo MediaType = "Video"
)

// MediaOwner says whether a media record belongs to a task or a build
type MediaOwner string

const (
	OwnerTask  MediaOwner = "Task"
	OwnerBuild MediaOwner = "Build"
)

func (o MediaOwner) Valid() bool {
	return o == OwnerTask || o == OwnerBuild
}

// DefaultUserType is assigned on registration. AdminUserType may manage
// other users and is only granted by another admin.
const (
	DefaultUserType = "Member"
	AdminUserType   = "Admin"
)

// User is a team member. Password hash and OTP never leave the server.
type User struct {
	ID           int64      `json:"id"`
	UserName     string     `json:"userName"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	PhoneNumber  string     `json:"phoneNumber"`
	Bio          string     `json:"bio"`
	UserType     string     `json:"userType"`
	SectionID    *int64     `json:"sectionID"`
	OTP          string     `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	OTPAttempts  int        `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Section groups tasks and users
type Section struct {
	ID          int64     `json:"id"`
	SectionName string    `json:"sectionName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Tag is a free-text label referenced by id from Task.TagIDs
type Tag struct {
	ID        int64     `json:"id"`
	TagName   string    `json:"tagName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Task represents a single task
type Task struct {
	ID               int64        `json:"id"`
	TaskName         string       `json:"taskName"`
	IDWithPrefix     string       `json:"idWithPrefix"`
	Description      string       `json:"description"`
	SubTask          string       `json:"subTask"`
	DueDate          *time.Time   `json:"dueDate"`
	Status           TaskStatus   `json:"status"`
	PlatformType     PlatformType `json:"platformType"`
	SectionID        int64        `json:"sectionID"`
	TaskAssignedToID *int64       `json:"taskAssignedToID"`
	TaskCreatedByID  *int64       `json:"taskCreatedByID"`
	TagIDs           IDList       `json:"tagIDs"`
	IsDelete         bool         `json:"isDelete"`
	SentToQA         bool         `json:"sentToQA"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	DeletedAt        *time.Time   `json:"deletedAt"`
}

// TaskPrefix is prepended to the numeric id to form IDWithPrefix
const TaskPrefix = "A-"

// DisplayID returns the prefixed id shown to users
func DisplayID(id int64) string {
	return fmt.Sprintf("%s%d", TaskPrefix, id)
}

// Comment is either a text comment, a set of media links, or both
type Comment struct {
	ID                     int64     `json:"id"`
	CommentText            Links     `json:"commentText"`
	TextCommentForViewTask string    `json:"textCommentforViewtask"`
	TaskID                 *int64    `json:"taskId"`
	CreatedByUserID        *int64    `json:"createdByUserId"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// Media is an uploaded file attached to a task or a build
type Media struct {
	ID            int64      `json:"id"`
	MediaLink     string     `json:"mediaLink"`
	Type          MediaOwner `json:"type"`
	TaskOrBuildID int64      `json:"taskOrBuildId"`
	MediaType     MediaType  `json:"mediaType"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TaskCheck records a QA verdict on a task for a build
type TaskCheck struct {
	ID              int64     `json:"id"`
	TaskName        string    `json:"taskName"`
	CheckedByUserID int64     `json:"checkedByUserId"`
	BuildID         int64     `json:"buildId"`
	IsWorking       bool      `json:"isWorking"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Build is a release handed to QA. Task checks and build comments hang
// off it.
type Build struct {
	ID              int64     `json:"id"`
	BuildName       string    `json:"buildName"`
	Version         string    `json:"version"`
	AndroidLink     string    `json:"androidLink"`
	CreatedByUserID *int64    `json:"createdByUserId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BuildComment is a note, optionally with media, left on a task while
// testing a build
type BuildComment struct {
	ID         int64     `json:"id"`
	BuildID    int64     `json:"buildId"`
	TaskName   string    `json:"taskName"`
	UserID     *int64    `json:"userId"`
	Comment    string    `json:"comment"`
	MediaLinks Links     `json:"mediaLinks"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Notification is a message addressed to one user
type Notification struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	TaskID           *int64    `json:"taskId"`
	NotificationText string    `json:"notificationText"`
	IsRead           bool      `json:"isRead"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// IDList is a list of ids stored as a JSON array in a text column
type IDList []int64

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int64(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IDList) Scan(src any) error {
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	if raw == "" {
		*l = IDList{}
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return fmt.Errorf("scan id list: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	*l = ids
	return nil
}

// Contains reports whether id is in the list
func (l IDList) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Without returns a copy of the list with every occurrence of id removed
func (l IDList) Without(id int64) IDList {
	out := make(IDList, 0, len(l))
	for _, v := range l {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Links holds media URLs. Stored values that are not a JSON array are
// legacy plain text and read back as a one-element list.
type Links []string

func (l Links) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *Links) Scan(src any) error {
	if src == nil {
		*l = Links{}
		return nil
	}
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	*l = ParseLinks(raw)
	return nil
}

// UnmarshalJSON accepts either a list of strings or a single string
func (l *Links) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("commentText must be a string or a list of strings")
	}
	*l = ParseLinks(s)
	return nil
}

// ParseLinks decodes a stored comment text value
func ParseLinks(raw string) Links {
	if raw == "" {
		return Links{}
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		if list == nil {
			return Links{}
		}
		return list
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return Links{s}
	}
	return Links{raw}
}

func textOf(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported column type %T", src)
	}
}
