package db

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection             = "users"
	ScholarsCollection          = "scholars"
	CheckerAttendanceCollection = "checker_attendance"
	SelfAttendanceCollection    = "self_attendance"
	PasswordResetsCollection    = "password_resets"
)

// ConnectToDB opens a client and returns the database named in the URI path,
// or fallbackName when the URI has none.
func ConnectToDB(mongoURI, fallbackName string) (*mongo.Database, func(context.Context) error, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse mongodb uri")
	}

	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		dbName = fallbackName
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to mongodb")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Wrap(err, "ping mongodb")
	}

	return client.Database(dbName), client.Disconnect, nil
}

// CreateTTLIndexForCollection expires documents at the instant stored in field.
func CreateTTLIndexForCollection(ctx context.Context, db *mongo.Database, collectionName, field string) error {
	collection := db.Collection(collectionName)

	indexModel := mongo.IndexModel{
		Keys:    bson.M{field: 1},
		Options: options.Index().SetExpireAfterSeconds(0), // expire exactly at the stored instant
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return errors.Wrapf(err, "ttl index on %s.%s", collectionName, field)
}

// EnsureIndexes creates the lookup and uniqueness indexes the API relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	sparseUnique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetSparse(true)}
	}

	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			unique(bson.D{{Key: "username", Value: 1}}),
			unique(bson.D{{Key: "email", Value: 1}}),
			sparseUnique(bson.D{{Key: "employeeId", Value: 1}}),
		},
		ScholarsCollection: {
			unique(bson.D{{Key: "id", Value: 1}}),
			unique(bson.D{{Key: "email", Value: 1}}),
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		CheckerAttendanceCollection: {
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "checkInTime", Value: -1}}},
		},
		SelfAttendanceCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		PasswordResetsCollection: {
			unique(bson.D{{Key: "email", Value: 1}}),
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "indexes on %s", name)
		}
		log.Debugf("indexes ensured on %s", name)
	}

	return CreateTTLIndexForCollection(ctx, db, PasswordResetsCollection, "expires_at")
}
