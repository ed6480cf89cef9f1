package builder

import (
	"testing"

	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findEntity(defs []*entity.Definition, name string) *entity.Definition {
	for _, d := range defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// S1 — User/Profile OneToOne where Profile.Id is both its PK and its FK to User.
func TestBuild_OneToOneFromSharedPrimaryKey(t *testing.T) {
	provider := metadata.NewStaticProvider(
		metadata.Descriptor{
			EntityName: "User",
			Members: []metadata.Member{
				{Name: "Id", Kind: metadata.KindScalar, SQLTypeName: "uniqueidentifier", Annotations: []metadata.Annotation{{Kind: metadata.AnnotationKey}}},
				{Name: "Name", Kind: metadata.KindScalar, SQLTypeName: "nvarchar(100)"},
				{Name: "Profile", Kind: metadata.KindReference, TargetEntity: "Profile"},
			},
		},
		metadata.Descriptor{
			EntityName: "Profile",
			Members: []metadata.Member{
				{Name: "Id", Kind: metadata.KindScalar, SQLTypeName: "uniqueidentifier", Annotations: []metadata.Annotation{
					{Kind: metadata.AnnotationKey},
					{Kind: metadata.AnnotationForeignKey, Args: map[string]string{"navigation": "User"}},
				}},
				{Name: "Bio", Kind: metadata.KindScalar, SQLTypeName: "nvarchar(max)", IsNullable: true},
				{Name: "User", Kind: metadata.KindReference, TargetEntity: "User"},
			},
		},
	)

	defs, err := Build(provider, nil)
	require.NoError(t, err)

	userIdx, profileIdx := -1, -1
	for i, d := range defs {
		switch d.Name {
		case "User":
			userIdx = i
		case "Profile":
			profileIdx = i
		}
	}
	assert.Less(t, userIdx, profileIdx, "referenced table must precede dependent")

	profile := findEntity(defs, "Profile")
	require.NotNil(t, profile)

	var fk *entity.Constraint
	for i := range profile.Constraints {
		if profile.Constraints[i].Type == entity.ConstraintForeignKey {
			fk = &profile.Constraints[i]
		}
	}
	require.NotNil(t, fk, "expected FK_Profile_Id")
	assert.Equal(t, "User", fk.ReferencedTable)
	assert.Equal(t, []string{"Id"}, fk.ReferencedColumns)

	var hasOneToOne bool
	for _, r := range profile.Relationships {
		if r.Type == entity.OneToOne {
			hasOneToOne = true
		}
	}
	assert.True(t, hasOneToOne, "Id is both PK and FK, so OneToOne must be inferred")
}

// S4 — reciprocal collections between Student and Course produce a shadow
// join table with a composite PK and canonical (lexicographically smaller)
// owner naming.
func TestBuild_ManyToManyShadowEntity(t *testing.T) {
	provider := metadata.NewStaticProvider(
		metadata.Descriptor{
			EntityName: "Student",
			Members: []metadata.Member{
				{Name: "Id", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{{Kind: metadata.AnnotationKey}}},
				{Name: "Courses", Kind: metadata.KindCollection, TargetEntity: "Course"},
			},
		},
		metadata.Descriptor{
			EntityName: "Course",
			Members: []metadata.Member{
				{Name: "Id", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{{Kind: metadata.AnnotationKey}}},
				{Name: "Students", Kind: metadata.KindCollection, TargetEntity: "Student"},
			},
		},
	)

	defs, err := Build(provider, nil)
	require.NoError(t, err)

	shadow := findEntity(defs, "CourseStudent")
	require.NotNil(t, shadow, "expected canonical shadow entity CourseStudent (Course < Student)")
	assert.True(t, shadow.IsShadow)
	require.NotNil(t, shadow.PrimaryKey)
	assert.ElementsMatch(t, []string{"CourseId", "StudentId"}, shadow.PrimaryKey.Columns)
	assert.Len(t, shadow.ForeignKeys, 2)
}

// §8.6 FK deduplication: the same FK declared via explicit annotation and
// via naming convention must collapse to exactly one.
func TestBuild_ForeignKeyDeduplication(t *testing.T) {
	provider := metadata.NewStaticProvider(
		metadata.Descriptor{
			EntityName: "Customer",
			Members: []metadata.Member{
				{Name: "Id", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{{Kind: metadata.AnnotationKey}}},
			},
		},
		metadata.Descriptor{
			EntityName: "Order",
			Members: []metadata.Member{
				{Name: "Id", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{{Kind: metadata.AnnotationKey}}},
				{Name: "CustomerId", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{
					{Kind: metadata.AnnotationForeignKey, Args: map[string]string{"navigation": "Customer"}},
				}},
				{Name: "Customer", Kind: metadata.KindReference, TargetEntity: "Customer"},
			},
		},
	)

	defs, err := Build(provider, nil)
	require.NoError(t, err)

	order := findEntity(defs, "Order")
	require.NotNil(t, order)

	fkCount := 0
	for _, c := range order.Constraints {
		if c.Type == entity.ConstraintForeignKey {
			fkCount++
		}
	}
	assert.Equal(t, 1, fkCount)
}

func TestBuild_DetectsCycle(t *testing.T) {
	provider := metadata.NewStaticProvider(
		metadata.Descriptor{
			EntityName: "A",
			Members: []metadata.Member{
				{Name: "Id", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{{Kind: metadata.AnnotationKey}}},
				{Name: "BId", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{
					{Kind: metadata.AnnotationForeignKey, Args: map[string]string{"navigation": "B"}},
				}},
				{Name: "B", Kind: metadata.KindReference, TargetEntity: "B"},
			},
		},
		metadata.Descriptor{
			EntityName: "B",
			Members: []metadata.Member{
				{Name: "Id", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{{Kind: metadata.AnnotationKey}}},
				{Name: "AId", Kind: metadata.KindScalar, SQLTypeName: "int", Annotations: []metadata.Annotation{
					{Kind: metadata.AnnotationForeignKey, Args: map[string]string{"navigation": "A"}},
				}},
				{Name: "A", Kind: metadata.KindReference, TargetEntity: "A"},
			},
		},
	)

	_, err := Build(provider, nil)
	require.Error(t, err)
	var cycleErr *SchemaCycleError
	assert.ErrorAs(t, err, &cycleErr)
}
