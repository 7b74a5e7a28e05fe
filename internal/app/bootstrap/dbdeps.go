// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	ConfHubMongoClient   *mongo.Client
	ConfHubMongoDatabase *mongo.Database

	// Redis is nil unless redis_url is configured.
	Redis *redis.Client

	// svc is allocated by ConnectDB and filled in by Startup so that
	// BuildHandler and Shutdown see the same service graph.
	svc *services
}
