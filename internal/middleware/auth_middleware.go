package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 流程：1、从http请求中取出"Authorization"字段 2、验证"Bearer [token]" 3、通过secretKey验证token有效性 4、若成功，从token中取出后续用到的用户信息，放入context
func AuthMiddleware(secret string) gin.HandlerFunc {
	secretKey := []byte(secret)
	return func(c *gin.Context) {
		// 拿到http协议请求头中的Authorization字段
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// 立刻调用c.Abort()，阻止后续的任何处理器（包括其他中间件和最终的handler）被执行
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权令牌"})
			return
		}

		// 通常Token的格式是 "Bearer [token]"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "授权令牌格式不正确"})
			return
		}

		// 解析Token，返回加密前的token（Header.Payload.Signature），还附带valid判断是否有效
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			// 确保签名方法是对称加密族
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("非预期的签名方法")
			}
			return secretKey, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权令牌"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权令牌"})
			return
		}
		// refresh token 只能用来换新令牌，不能当access token用
		if typ, ok := claims["typ"]; ok && typ != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权令牌"})
			return
		}
		// jwt.MapClaims中的数字会被解析为float64，这里统一转成uint64再放进context
		userIDFloat, ok := claims["user_id"].(float64)
		if !ok || userIDFloat <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权令牌"})
			return
		}
		c.Set("userID", uint64(userIDFloat))
		c.Set("username", claims["username"])

		// 放行，继续处理请求
		c.Next()
	}
}
