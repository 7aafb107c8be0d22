package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
)

const publicCacheKey = "active"

func (s *Server) ListPublicPackages(c *gin.Context) {
	if cached, ok := s.packageCache.Get(publicCacheKey); ok {
		c.JSON(http.StatusOK, gin.H{"data": cached})
		return
	}

	resp, err := s.catalogSvc.ListPackages(c.Request.Context(), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.packageCache.Set(publicCacheKey, resp)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPublicDomainPrices(c *gin.Context) {
	if cached, ok := s.domainPriceCache.Get(publicCacheKey); ok {
		c.JSON(http.StatusOK, gin.H{"data": cached})
		return
	}

	resp, err := s.catalogSvc.ListDomainPrices(c.Request.Context(), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.domainPriceCache.Set(publicCacheKey, resp)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPackages(c *gin.Context) {
	activeOnly, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.catalogSvc.ListPackages(c.Request.Context(), activeOnly != nil && *activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPackage(c *gin.Context) {
	resp, err := s.catalogSvc.GetPackage(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePackage(c *gin.Context) {
	var req catalogdomain.PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.CreatePackage(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.packageCache.Invalidate()
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdatePackage(c *gin.Context) {
	var req catalogdomain.PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.UpdatePackage(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.packageCache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePackage(c *gin.Context) {
	if err := s.catalogSvc.DeletePackage(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	s.packageCache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) ListDomainPrices(c *gin.Context) {
	resp, err := s.catalogSvc.ListDomainPrices(c.Request.Context(), false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateDomainPrice(c *gin.Context) {
	var req catalogdomain.DomainPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.CreateDomainPrice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.domainPriceCache.Invalidate()
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateDomainPrice(c *gin.Context) {
	var req catalogdomain.DomainPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.UpdateDomainPrice(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.domainPriceCache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDomainPrice(c *gin.Context) {
	if err := s.catalogSvc.DeleteDomainPrice(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	s.domainPriceCache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
