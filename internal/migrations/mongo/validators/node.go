package validators

import "go.mongodb.org/mongo-driver/bson"

// NodeValidator describes one node of the document tree. Field maps under
// data are free-form; the path columns are what the store queries by.
var NodeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"parent",
			"key",
			"data",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 1024,
				"pattern":   `^[^/]+(/[^/]+)*$`,
			},

			"parent": bson.M{
				"bsonType":  "string",
				"maxLength": 1024,
			},

			"key": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 256,
				"pattern":   `^[^/.$]+$`,
			},

			"data": bson.M{
				"bsonType": "object",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
