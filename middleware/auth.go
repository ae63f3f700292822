package middleware

import (
	"g7kaih_go/config"
	"g7kaih_go/database"
	"g7kaih_go/models"
	"g7kaih_go/utils"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Claims carries the verified identity issued by the auth collaborator.
// This service never issues tokens; it only verifies and trusts them.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTMiddleware validates JWT tokens
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.JWTSecret), nil
		})

		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		// Verify the profile still exists
		var profile models.UserProfile
		if err := database.DB.Where("id = ?", claims.UserID).First(&profile).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		if !utils.IsValidRole(profile.Role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Unknown role",
			})
		}

		c.Locals("profile", &profile)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequireRole middleware checks if user has required role
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, ok := c.Locals("profile").(*models.UserProfile)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing user profile",
			})
		}

		for _, role := range roles {
			if profile.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

// RequireAdmin allows only admins
func RequireAdmin() fiber.Handler {
	return RequireRole("admin")
}

// RequireValidator allows the two validating roles (guru, orangtua)
func RequireValidator() fiber.Handler {
	return RequireRole("guru", "orangtua")
}

// RequireGuruWali allows only guru wali accounts
func RequireGuruWali() fiber.Handler {
	return RequireRole("guruwali")
}

// RequireStudent allows only student accounts
func RequireStudent() fiber.Handler {
	return RequireRole("siswa")
}

// GetCurrentProfile returns the current authenticated user profile
func GetCurrentProfile(c *fiber.Ctx) (*models.UserProfile, error) {
	profile, ok := c.Locals("profile").(*models.UserProfile)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Profile not found in context")
	}
	return profile, nil
}

// GetCurrentClaims returns the current JWT claims
func GetCurrentClaims(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals("claims").(*Claims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Claims not found in context")
	}
	return claims, nil
}
