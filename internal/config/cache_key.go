package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// RoomStartKey returns the cache key for a room's quiz start time (unix seconds).
func (r *CacheKeyStruct) RoomStartKey(roomID string) string {
	return fmt.Sprintf("room:%s:quiz_start", roomID)
}

// RoomDurationKey returns the cache key for a room's quiz duration (minutes).
func (r *CacheKeyStruct) RoomDurationKey(roomID string) string {
	return fmt.Sprintf("room:%s:quiz_duration", roomID)
}

var CacheKey = NewCacheKeyStruct()
