package content

type CreateColumnInput struct {
	Title          string `json:"title" binding:"required,max=255"`
	Summary        string `json:"summary"`
	Content        string `json:"content" binding:"required"`
	AccessType     string `json:"access_type" binding:"omitempty,oneof=free point_required"`
	RequiredPoints int64  `json:"required_points" binding:"omitempty,min=0"`
}

type UpdateColumnInput struct {
	Title          *string `json:"title,omitempty" binding:"omitempty,max=255"`
	Summary        *string `json:"summary,omitempty"`
	Content        *string `json:"content,omitempty"`
	AccessType     *string `json:"access_type,omitempty" binding:"omitempty,oneof=free point_required"`
	RequiredPoints *int64  `json:"required_points,omitempty" binding:"omitempty,min=0"`
	IsPublished    *bool   `json:"is_published,omitempty"`
}

type CreateRoomInput struct {
	Name           string `json:"name" binding:"required,max=255"`
	Description    string `json:"description"`
	RequiredPoints int64  `json:"required_points" binding:"omitempty,min=0"`
}

type UpdateRoomInput struct {
	Name           *string `json:"name,omitempty" binding:"omitempty,max=255"`
	Description    *string `json:"description,omitempty"`
	RequiredPoints *int64  `json:"required_points,omitempty" binding:"omitempty,min=0"`
	IsActive       *bool   `json:"is_active,omitempty"`
}
