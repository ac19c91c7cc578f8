package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/recipecost/internal/costing"
	recipedomain "github.com/smallbiznis/recipecost/internal/recipe/domain"
)

func (s *Server) CreateRecipe(c *gin.Context) {
	var req recipedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.recipeSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRecipes(c *gin.Context) {
	var query struct {
		Name           string `form:"name"`
		Category       string `form:"category"`
		Active         string `form:"active"`
		Classification string `form:"classification"`
		Sort           string `form:"sort"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool("active", query.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.recipeSvc.List(c.Request.Context(), recipedomain.ListRequest{
		Name:           strings.TrimSpace(query.Name),
		Category:       strings.TrimSpace(query.Category),
		Active:         active,
		Classification: costing.Label(strings.ToLower(strings.TrimSpace(query.Classification))),
		Sort:           recipedomain.SortOrder(strings.ToLower(strings.TrimSpace(query.Sort))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRecipeByID(c *gin.Context) {
	resp, err := s.recipeSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRecipe(c *gin.Context) {
	var req recipedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.recipeSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRecipe(c *gin.Context) {
	if err := s.recipeSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) DuplicateRecipe(c *gin.Context) {
	resp, err := s.recipeSvc.Duplicate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) PreviewRecipe(c *gin.Context) {
	var req recipedomain.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.recipeSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecipeSheetPDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	doc, err := s.reportSvc.RecipeSheetPDF(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="ficha-tecnica-`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", body)
}
