package hydramongo

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/lemmego/hydra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Test models with MongoDB tags
type TestWriter struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
}

func (w TestWriter) CollectionName() string { return "test_writers" }

type TestBook struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Title  string             `bson:"title"`
	Author *TestWriter        `bson:"author,omitempty"`
}

func (b TestBook) CollectionName() string { return "test_books" }

type TestSeat struct {
	Row    string `bson:"row" hydra:"row,id"`
	Number int    `bson:"number" hydra:"number,id"`
	Holder string
}

// Test suite
type MongoAdapterTestSuite struct {
	suite.Suite
	db    *mongo.Database
	store *Store
	ctx   context.Context
}

func (suite *MongoAdapterTestSuite) SetupSuite() {
	config := hydra.Config{
		Driver:   "mongodb",
		Host:     "localhost",
		Port:     27017,
		Database: "test_hydra_mongo",
		Options: map[string]interface{}{
			"mongo": map[string]interface{}{
				"max_pool_size":   10,
				"min_pool_size":   1,
				"connect_timeout": 2 * time.Second,
			},
		},
	}

	// Skip tests if MongoDB is not available
	db, err := Open(config)
	if err != nil {
		suite.T().Skip("MongoDB not available for testing:", err)
		return
	}

	suite.db = db
	suite.store = NewStore(db, nil)
	suite.ctx = context.Background()
}

func (suite *MongoAdapterTestSuite) TearDownSuite() {
	if suite.db != nil {
		suite.db.Drop(suite.ctx)
		suite.db.Client().Disconnect(suite.ctx)
	}
}

func (suite *MongoAdapterTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Drop(suite.ctx))
}

func (suite *MongoAdapterTestSuite) insert(entity interface{}) {
	_, err := suite.store.Collection(reflect.TypeOf(entity)).InsertOne(suite.ctx, entity)
	suite.Require().NoError(err)
}

func (suite *MongoAdapterTestSuite) TestFind() {
	writer := &TestWriter{ID: primitive.NewObjectID(), Name: "Ann"}
	suite.insert(writer)
	target := reflect.TypeOf(TestWriter{})

	found, err := suite.store.Find(suite.ctx, target, writer.ID)
	suite.Require().NoError(err)
	suite.Require().IsType(&TestWriter{}, found)
	suite.Equal("Ann", found.(*TestWriter).Name)

	found, err = suite.store.Find(suite.ctx, target, writer.ID.Hex())
	suite.Require().NoError(err)
	suite.Equal(writer.ID, found.(*TestWriter).ID)

	found, err = suite.store.Find(suite.ctx, target, primitive.NewObjectID())
	suite.NoError(err)
	suite.Nil(found)

	_, err = suite.store.Find(suite.ctx, target, "not-hex")
	suite.True(hydra.IsParse(err))
}

func (suite *MongoAdapterTestSuite) TestFindCompositeKey() {
	suite.insert(&TestSeat{Row: "B", Number: 7, Holder: "Cy"})

	found, err := suite.store.Find(suite.ctx, reflect.TypeOf(TestSeat{}), hydra.Record{"row": "B", "number": 7})
	suite.Require().NoError(err)
	suite.Equal("Cy", found.(*TestSeat).Holder)
}

func (suite *MongoAdapterTestSuite) TestHydrateResolvesToOne() {
	writer := &TestWriter{ID: primitive.NewObjectID(), Name: "Ann"}
	suite.insert(writer)
	h, err := hydra.New(suite.store.Metadata(), suite.store, hydra.WithByValue(false))
	suite.Require().NoError(err)

	book := &TestBook{}
	_, err = h.Hydrate(suite.ctx, hydra.Record{"title": "Go", "author": writer.ID.Hex()}, book)
	suite.Require().NoError(err)
	suite.Equal("Go", book.Title)
	suite.Require().NotNil(book.Author)
	suite.Equal("Ann", book.Author.Name)
}

func TestMongoAdapterSuite(t *testing.T) {
	suite.Run(t, new(MongoAdapterTestSuite))
}

// =====================================
// Unit Tests
// =====================================

func TestBuildConnectionURI(t *testing.T) {
	tests := []struct {
		name     string
		config   hydra.Config
		expected string
	}{
		{"defaults", hydra.Config{}, "mongodb://localhost:27017"},
		{"credentials", hydra.Config{Username: "u", Password: "p", Host: "db", Port: 27018, Database: "app"}, "mongodb://u:p@db:27018/app"},
		{"ssl", hydra.Config{Database: "app", SSL: hydra.SSLConfig{Enabled: true, CAFile: "/ca.pem"}}, "mongodb://localhost:27017/app?ssl=true&sslCAFile=/ca.pem"},
		{"url", hydra.Config{ConnectionURL: "mongodb+srv://cluster"}, "mongodb+srv://cluster"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, buildConnectionURI(tt.config), tt.name)
	}
}

func TestIdentifierFilter(t *testing.T) {
	meta := hydra.NewMetadataRegistry()
	oid := primitive.NewObjectID()

	info, err := meta.MetadataFor(reflect.TypeOf(TestWriter{}))
	require.NoError(t, err)
	filter, err := identifierFilter(info, hydra.Record{"id": oid.Hex()})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}}, filter)

	_, err = identifierFilter(info, hydra.Record{"id": "zz"})
	assert.True(t, hydra.IsParse(err))

	info, err = meta.MetadataFor(reflect.TypeOf(TestSeat{}))
	require.NoError(t, err)
	filter, err = identifierFilter(info, hydra.Record{"row": "A", "number": 1})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "row", Value: "A"}, {Key: "number", Value: 1}}, filter)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "test_writers", collectionName(reflect.TypeOf(&TestWriter{})))
	assert.Equal(t, "testseats", collectionName(reflect.TypeOf(TestSeat{})))
}

func TestDocumentKey(t *testing.T) {
	st := reflect.TypeOf(TestSeat{})
	for name, key := range map[string]string{"Row": "row", "Holder": "holder"} {
		sf, _ := st.FieldByName(name)
		assert.Equal(t, key, documentKey(sf))
	}
}

func TestConvertMongoError(t *testing.T) {
	assert.Nil(t, convertMongoError(nil))
	assert.True(t, hydra.IsErrorType(convertMongoError(mongo.ErrNilDocument), hydra.ErrorTypeInvalidArgument))
	assert.True(t, hydra.IsErrorType(convertMongoError(mongo.CommandError{Code: 18, Message: "auth"}), hydra.ErrorTypeConnection))
	assert.True(t, hydra.IsErrorType(convertMongoError(context.DeadlineExceeded), hydra.ErrorTypeTimeout))
	assert.True(t, hydra.IsStore(convertMongoError(assert.AnError)))
}
