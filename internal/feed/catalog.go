package feed

const cdn = "https://kentarokojima.com/tiktok-clone/"

// DefaultCatalog is the built-in demo feed. Ids are deliberately sparse.
// Preview refs are relative and resolved against the redirect origin.
func DefaultCatalog() []Item {
	return []Item{
		{ID: "0", MediaRef: cdn + "video22.mp4", PreviewImageRef: "/previews/preview-9.jpg",
			Caption: "Stunning waterfall in the jungle #waterfall #jungle #travel", AuthorName: "adventure_seeker",
			AuthorAvatarRef: "https://picsum.photos/id/91/200"},
		{ID: "1", MediaRef: cdn + "video3.mp4", PreviewImageRef: "/previews/preview-1.jpg",
			Caption: "Amazing sunset view #sunset #nature", AuthorName: "nature_lover",
			AuthorAvatarRef: "https://picsum.photos/id/64/200"},
		{ID: "2", MediaRef: cdn + "video4.mp4", PreviewImageRef: "/previews/preview-2.jpg",
			Caption: "City lights at night #city #lights", AuthorName: "urban_explorer",
			AuthorAvatarRef: "https://picsum.photos/id/65/200"},
		{ID: "4", MediaRef: cdn + "video6.mp4", PreviewImageRef: "/previews/preview-4.jpg",
			Caption: "Mountain hiking adventure #mountains #hiking", AuthorName: "adventure_time",
			AuthorAvatarRef: "https://picsum.photos/id/69/200"},
		{ID: "5", MediaRef: cdn + "video7.mp4", PreviewImageRef: "/previews/preview-5.jpg",
			Caption: "Cooking a new recipe #food #cooking", AuthorName: "food_lover",
			AuthorAvatarRef: "https://picsum.photos/id/23/200"},
		{ID: "10", MediaRef: cdn + "video23.mp4", PreviewImageRef: "/previews/preview-10.jpg",
			Caption: "Stunning waterfall in the jungle #waterfall #jungle #travel", AuthorName: "adventure_seeker",
			AuthorAvatarRef: "https://picsum.photos/id/91/200"},
		{ID: "11", MediaRef: cdn + "video24.mp4", PreviewImageRef: "/previews/preview-11.jpg",
			Caption: "Stunning waterfall in the jungle #waterfall #jungle #travel", AuthorName: "adventure_seeker",
			AuthorAvatarRef: "https://picsum.photos/id/91/200"},
		{ID: "12", MediaRef: cdn + "video25.mp4", PreviewImageRef: "/previews/preview-12.jpg",
			Caption: "Stunning waterfall in the jungle #waterfall #jungle #travel", AuthorName: "adventure_seeker",
			AuthorAvatarRef: "https://picsum.photos/id/91/200"},
	}
}
