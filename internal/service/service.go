package service

import (
	"github.com/smartcity/trafficlens/internal/domain"
)

// Repository is re-exported from domain for convenience
type Repository = domain.Repository
