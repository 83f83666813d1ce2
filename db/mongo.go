package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oktaw-g/MGR/models"
	"github.com/oktaw-g/MGR/utils"
)

type MongoClient struct {
	client *mongo.Client
	runs   *mongo.Collection
}

func NewMongoClient(uri string) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %s", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("error pinging MongoDB: %s", err)
	}

	dbName := utils.GetEnv("MONGO_DB_NAME", "model-eval")
	runs := client.Database(dbName).Collection("eval_runs")

	return &MongoClient{client: client, runs: runs}, nil
}

func (c *MongoClient) StoreRun(run *models.EvalRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.runs.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("error storing evaluation run: %s", err)
	}
	return nil
}

func (c *MongoClient) ListRuns(limit int) ([]models.EvalRun, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := c.runs.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying evaluation runs: %s", err)
	}
	defer cursor.Close(ctx)

	var runs []models.EvalRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("error decoding evaluation runs: %s", err)
	}

	return runs, nil
}

func (c *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}
