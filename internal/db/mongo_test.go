package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/smart-clean/internal/models"
)

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestReportCollection_NilCollection(t *testing.T) {
	coll := &MongoReportCollection{Collection: nil}
	ctx := context.Background()

	_, err := coll.InsertReport(ctx, models.Report{})
	assert.Error(t, err)
	_, err = coll.FindReports(ctx, ReportFilter{})
	assert.Error(t, err)
	_, err = coll.FindReportByID(ctx, "507f1f77bcf86cd799439011")
	assert.Error(t, err)
	assert.Error(t, coll.UpdateStatus(ctx, "507f1f77bcf86cd799439011", models.StatusCollected))
	assert.Error(t, coll.EnsureIndexes(ctx))
}

// Integration test (requires running MongoDB)
func TestReportCollection_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	collection := client.Database("test_smartclean").Collection("reports")
	collection.Drop(ctx)
	coll := &MongoReportCollection{Collection: collection}
	require.NoError(t, coll.EnsureIndexes(ctx))

	id, err := coll.InsertReport(ctx, models.Report{
		Text:     "report",
		Location: &models.Location{Lat: 17.385, Lon: 78.4867},
	})
	require.NoError(t, err)

	found, err := coll.FindReportByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, found.Status)
	assert.Equal(t, 17.385, found.Location.Lat)

	require.NoError(t, coll.UpdateStatus(ctx, id, models.StatusCollected))
	list, err := coll.FindReports(ctx, ReportFilter{Status: models.StatusCollected})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID.Hex())

	_, err = coll.FindReportByID(ctx, "507f1f77bcf86cd799439011")
	assert.ErrorIs(t, err, ErrReportNotFound)
	_, err = coll.FindReportByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, coll.UpdateStatus(ctx, "507f1f77bcf86cd799439011", models.StatusOpen), ErrReportNotFound)
}
